package model

import "math"

// Listing holds the columns shared by rent and sell listings. Rows are written by the
// external ETL pipeline; this service only reads them.
type Listing struct {
	ID                int64    `json:"id" db:"id"`
	ExternalID        string   `json:"external_id" db:"external_id"`
	Source            string   `json:"source" db:"source"`
	Price             int64    `json:"price" db:"price"`
	PricePerM2        *float64 `json:"price_per_m2,omitempty" db:"price_per_m2"`
	Disposition       *string  `json:"disposition,omitempty" db:"disposition"`
	Surface           *int     `json:"surface,omitempty" db:"surface"`
	District          *string  `json:"district,omitempty" db:"district"`
	Furnishing        *string  `json:"furnishing,omitempty" db:"furnishing"`
	Garage            bool     `json:"garage" db:"garage"`
	Balcony           bool     `json:"balcony" db:"balcony"`
	Loggia            bool     `json:"loggia" db:"loggia"`
	MHD               bool     `json:"mhd" db:"mhd"` // public transit access
	Latitude          *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64 `json:"longitude,omitempty" db:"longitude"`
	DistanceToCenter  *float64 `json:"distance_to_center,omitempty" db:"distance_to_center"`
	DistanceToMetroKm *float64 `json:"distance_to_metro_km,omitempty" db:"distance_to_metro_km"`
	NearestMetro      *string  `json:"nearest_metro,omitempty" db:"nearest_metro"`
	MainImage         *string  `json:"main_image,omitempty" db:"main_image"`
	AllImages         *string  `json:"all_images,omitempty" db:"all_images"`
}

// RentListing is a row of the rent_listings table
type RentListing struct {
	Listing
}

// SellListing is a row of the sell_listings table
type SellListing struct {
	Listing
	PredictedRentPrice *float64 `json:"predicted_rent_price,omitempty" db:"predicted_rent_price"`
}

// DistrictName returns the district or the city-wide default
func (l Listing) DistrictName() string {
	if l.District == nil || *l.District == "" {
		return "Prague"
	}
	return *l.District
}

// DispositionName returns the disposition or "N/A"
func (l Listing) DispositionName() string {
	if l.Disposition == nil || *l.Disposition == "" {
		return "N/A"
	}
	return *l.Disposition
}

// PaybackYears is price / (predicted monthly rent * 12), rounded half away from zero to
// one decimal. It is nil when there is no positive predicted rent.
func (s SellListing) PaybackYears() *float64 {
	if s.PredictedRentPrice == nil || *s.PredictedRentPrice <= 0 || s.Price <= 0 {
		return nil
	}
	years := float64(s.Price) / (*s.PredictedRentPrice * 12)
	rounded := math.Round(years*10) / 10
	return &rounded
}
