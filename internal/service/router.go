package service

import (
	"context"
	"fmt"

	"realty/internal/model"
	"realty/pkg/log"
)

// Fixed semantic queries used to illustrate district rankings with real listings
const (
	StudentExampleQuery = "cheap student apartment near metro"
	FamilyExampleQuery  = "family apartment quiet area balcony"
)

// Ranking block headers
const (
	StudentHeader    = "TOP DISTRICTS FOR STUDENTS (cheapest avg rent):"
	FamilyHeader     = "TOP DISTRICTS FOR FAMILIES (3+ rooms with balcony):"
	InvestmentHeader = "TOP INVESTMENT DISTRICTS (lowest avg price):"
)

// ListingStore is the structured query layer the router reads from
type ListingStore interface {
	SearchRent(ctx context.Context, filter model.ListingFilter) ([]model.RentListing, error)
	SearchSell(ctx context.Context, filter model.ListingFilter) ([]model.SellListing, error)
	MarketStats(ctx context.Context) (*model.MarketStats, error)
	StudentDistricts(ctx context.Context, maxRent float64, limit int) ([]model.AggregateStat, error)
	FamilyDistricts(ctx context.Context, limit int) ([]model.AggregateStat, error)
	InvestmentDistricts(ctx context.Context, limit int) ([]model.AggregateStat, error)
	DistrictOverview(ctx context.Context, limit int) ([]model.AggregateStat, error)
	CompareDistricts(ctx context.Context, first, second string) (*model.DistrictComparison, error)
}

// SemanticSearcher returns the listing documents nearest to a text
type SemanticSearcher interface {
	Search(ctx context.Context, query string, n int) ([]model.SemanticHit, error)
}

// RouterOptions sizes every retrieval path
type RouterOptions struct {
	ListingLimit      int
	SemanticTopK      int
	MergeHits         int
	StudentMaxRent    float64
	StudentDistricts  int
	FamilyDistricts   int
	InvestDistricts   int
	OverviewDistricts int
}

// DefaultRouterOptions are the sizes used when nothing is configured
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		ListingLimit:      5,
		SemanticTopK:      5,
		MergeHits:         4,
		StudentMaxRent:    15000,
		StudentDistricts:  5,
		FamilyDistricts:   5,
		InvestDistricts:   8,
		OverviewDistricts: 10,
	}
}

type routeFunc func(ctx context.Context, intent model.Intent, query string) (string, error)

// Router selects and combines data sources by intent type
type Router struct {
	store    ListingStore
	searcher SemanticSearcher
	geo      GeoAnalyzer
	opts     RouterOptions
	routes   map[model.IntentType]routeFunc
}

// NewRouter creates a router; a nil geo analyzer uses the placeholder
func NewRouter(store ListingStore, searcher SemanticSearcher, geo GeoAnalyzer, opts RouterOptions) *Router {
	if geo == nil {
		geo = PlaceholderGeoAnalyzer{}
	}
	r := &Router{store: store, searcher: searcher, geo: geo, opts: opts}
	r.routes = map[model.IntentType]routeFunc{
		model.IntentRent:       r.rent,
		model.IntentSell:       r.sell,
		model.IntentStudent:    r.student,
		model.IntentInvestment: r.investment,
		model.IntentFamily:     r.family,
		model.IntentCompare:    r.compare,
		model.IntentGeo:        r.geoArea,
		model.IntentStats:      r.stats,
		model.IntentDistricts:  r.districts,
		model.IntentGeneral:    r.general,
	}
	return r
}

// Handles reports whether the intent type has a dedicated route
func (r *Router) Handles(t model.IntentType) bool {
	_, ok := r.routes[t]
	return ok
}

// Retrieve builds the context block for an intent. The result is never empty;
// collaborator failures are returned as errors.
func (r *Router) Retrieve(ctx context.Context, intent model.Intent, query string) (string, error) {
	route, ok := r.routes[intent.Type]
	if !ok {
		route = r.general
	}

	text, err := route(ctx, intent, query)
	if err != nil {
		return "", fmt.Errorf("retrieval for %s intent failed: %w", intent.Type, err)
	}
	if text == "" {
		return NoListingsFound, nil
	}
	return text, nil
}

// rent prefers semantic hits and falls back to a filtered listing query when the
// price cap leaves none
func (r *Router) rent(ctx context.Context, intent model.Intent, query string) (string, error) {
	hits, err := r.searcher.Search(ctx, query, r.opts.SemanticTopK)
	if err != nil {
		return "", err
	}

	if intent.MaxPrice != nil {
		kept := hits[:0:0]
		for _, h := range hits {
			if h.Metadata.Price <= *intent.MaxPrice {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	if len(hits) > 0 {
		return FormatHits(hits), nil
	}

	log.Debugf("No semantic rent hits for %q, using filtered listing query", query)
	listings, err := r.store.SearchRent(ctx, intent.Filter(r.opts.ListingLimit))
	if err != nil {
		return "", err
	}
	return FormatRentListings(listings), nil
}

func (r *Router) sell(ctx context.Context, intent model.Intent, query string) (string, error) {
	listings, err := r.store.SearchSell(ctx, intent.Filter(r.opts.ListingLimit))
	if err != nil {
		return "", err
	}
	return FormatSellListings(listings), nil
}

func (r *Router) student(ctx context.Context, intent model.Intent, query string) (string, error) {
	stats, err := r.store.StudentDistricts(ctx, r.opts.StudentMaxRent, r.opts.StudentDistricts)
	if err != nil {
		return "", err
	}
	hits, err := r.searcher.Search(ctx, StudentExampleQuery, r.opts.MergeHits)
	if err != nil {
		return "", err
	}
	return Merge(FormatRanking(StudentHeader, stats), hits, r.opts.MergeHits), nil
}

func (r *Router) family(ctx context.Context, intent model.Intent, query string) (string, error) {
	stats, err := r.store.FamilyDistricts(ctx, r.opts.FamilyDistricts)
	if err != nil {
		return "", err
	}
	hits, err := r.searcher.Search(ctx, FamilyExampleQuery, r.opts.MergeHits)
	if err != nil {
		return "", err
	}
	return Merge(FormatRanking(FamilyHeader, stats), hits, r.opts.MergeHits), nil
}

func (r *Router) investment(ctx context.Context, intent model.Intent, query string) (string, error) {
	stats, err := r.store.InvestmentDistricts(ctx, r.opts.InvestDistricts)
	if err != nil {
		return "", err
	}
	return FormatRanking(InvestmentHeader, stats), nil
}

func (r *Router) stats(ctx context.Context, intent model.Intent, query string) (string, error) {
	stats, err := r.store.MarketStats(ctx)
	if err != nil {
		return "", err
	}
	return FormatMarketStats(stats), nil
}

func (r *Router) districts(ctx context.Context, intent model.Intent, query string) (string, error) {
	stats, err := r.store.DistrictOverview(ctx, r.opts.OverviewDistricts)
	if err != nil {
		return "", err
	}
	return FormatOverview(stats), nil
}

// compare matches both districts independently; an empty name matches every listing
func (r *Router) compare(ctx context.Context, intent model.Intent, query string) (string, error) {
	first, second := deref(intent.District), deref(intent.District2)
	if first == "" || second == "" {
		log.Warnw("Comparing with an empty district, that side covers all districts", "district", first, "district2", second)
	}

	cmp, err := r.store.CompareDistricts(ctx, first, second)
	if err != nil {
		return "", err
	}
	return FormatComparison(cmp), nil
}

func (r *Router) geoArea(ctx context.Context, intent model.Intent, query string) (string, error) {
	if intent.Lat == nil || intent.Lon == nil {
		return GeoCoordinatesRequired, nil
	}
	return r.geo.Analyze(ctx, *intent.Lat, *intent.Lon, intent.RadiusKm)
}

func (r *Router) general(ctx context.Context, intent model.Intent, query string) (string, error) {
	hits, err := r.searcher.Search(ctx, query, r.opts.SemanticTopK)
	if err != nil {
		return "", err
	}
	return FormatHits(hits), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
