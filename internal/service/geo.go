package service

import (
	"context"
	"fmt"
)

// GeoAnalyzer answers questions about the area around a coordinate
type GeoAnalyzer interface {
	Analyze(ctx context.Context, lat, lon float64, radiusKm *float64) (string, error)
}

// PlaceholderGeoAnalyzer stands in until coordinate search exists
type PlaceholderGeoAnalyzer struct{}

// Analyze returns a fixed "not implemented" message
func (PlaceholderGeoAnalyzer) Analyze(ctx context.Context, lat, lon float64, radiusKm *float64) (string, error) {
	return fmt.Sprintf("Geo search near (%g, %g) is not implemented yet. Try searching by district name instead.", lat, lon), nil
}

// GeoCoordinatesRequired asks the user for a location when a geo question carries none
const GeoCoordinatesRequired = "To search near a location, please provide its coordinates (latitude and longitude) or name a district instead."
