package model

// HitMetadata is the structured payload stored next to every indexed listing document
type HitMetadata struct {
	Price           float64 `json:"price"`
	District        string  `json:"district"`
	Disposition     string  `json:"disposition"`
	Surface         float64 `json:"surface"`
	DistanceToMetro float64 `json:"distance_to_metro"`
}

// SemanticHit is one nearest-neighbour result. Distance is the cosine distance,
// smaller means closer.
type SemanticHit struct {
	Text     string      `json:"text"`
	Metadata HitMetadata `json:"metadata"`
	Distance float64     `json:"similarity_distance"`
}

// ListingDocument is what gets embedded and stored in the vector index
type ListingDocument struct {
	ID        string
	Text      string
	Metadata  HitMetadata
	Embedding []float32
}

// AggregateStat is avg/min/max/count over a group of listings, keyed by district
// or disposition. Key is empty for ungrouped aggregates.
type AggregateStat struct {
	Key   string  `json:"key,omitempty" db:"group_key"`
	Avg   float64 `json:"avg" db:"avg_price"`
	Min   float64 `json:"min" db:"min_price"`
	Max   float64 `json:"max" db:"max_price"`
	Count int64   `json:"count" db:"listing_count"`
}

// MarketStats is the global rent and sell overview
type MarketStats struct {
	Rent AggregateStat `json:"rent"`
	Sell AggregateStat `json:"sell"`
}

// DistrictComparison holds two independently computed rent aggregates
type DistrictComparison struct {
	First      string        `json:"first"`
	Second     string        `json:"second"`
	FirstStat  AggregateStat `json:"first_stat"`
	SecondStat AggregateStat `json:"second_stat"`
}

// IndexBuildReport summarizes one vector index build run
type IndexBuildReport struct {
	Total    int `json:"total"`
	Existing int `json:"existing"`
	Inserted int `json:"inserted"`
}
