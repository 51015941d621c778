package model

// IntentType is the closed set of query categories the retrieval router understands
type IntentType string

const (
	IntentRent       IntentType = "rent"
	IntentSell       IntentType = "sell"
	IntentStudent    IntentType = "student"
	IntentInvestment IntentType = "investment"
	IntentFamily     IntentType = "family"
	IntentCompare    IntentType = "compare"
	IntentGeo        IntentType = "geo"
	IntentStats      IntentType = "stats"
	IntentDistricts  IntentType = "districts"
	IntentGeneral    IntentType = "general"
)

// IntentTypes lists every valid intent type in prompt order
var IntentTypes = []IntentType{
	IntentRent,
	IntentSell,
	IntentStudent,
	IntentInvestment,
	IntentFamily,
	IntentCompare,
	IntentGeo,
	IntentStats,
	IntentDistricts,
	IntentGeneral,
}

// Valid reports whether t is one of the known intent types
func (t IntentType) Valid() bool {
	for _, known := range IntentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Intent is the structured classification of a free-text question.
// Type is always set; every filter is optional.
type Intent struct {
	Type        IntentType `json:"type"`
	District    *string    `json:"district,omitempty"`
	District2   *string    `json:"district2,omitempty"`
	MaxPrice    *float64   `json:"max_price,omitempty"`
	Disposition *string    `json:"disposition,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	RadiusKm    *float64   `json:"radius_km,omitempty"`
}

// GeneralIntent is the fallback used whenever classification fails
func GeneralIntent() Intent {
	return Intent{Type: IntentGeneral}
}

// ListingFilter narrows a filtered rent/sell listing read
type ListingFilter struct {
	District    *string
	Disposition *string
	MaxPrice    *float64 // inclusive
	Limit       int
}

// Filter derives the listing filter carried by the intent
func (i Intent) Filter(limit int) ListingFilter {
	return ListingFilter{
		District:    i.District,
		Disposition: i.Disposition,
		MaxPrice:    i.MaxPrice,
		Limit:       limit,
	}
}
