package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"realty/internal/model"
)

var errBoom = errors.New("boom")

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// fakeGenerator replies with fixed text or per-call via GenerateFunc
type fakeGenerator struct {
	mu           sync.Mutex
	Reply        string
	Err          error
	GenerateFunc func(system string, turns []model.Turn) (string, error)
	Chunks       []string
	Thinking     []string

	calls   int
	systems []string
	seen    [][]model.Turn
}

func (g *fakeGenerator) Generate(ctx context.Context, system string, turns []model.Turn) (string, error) {
	g.mu.Lock()
	g.calls++
	g.systems = append(g.systems, system)
	g.seen = append(g.seen, append([]model.Turn(nil), turns...))
	fn := g.GenerateFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(system, turns)
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, system string, turns []model.Turn, onDelta StreamDelta) (string, error) {
	if len(g.Chunks) == 0 {
		reply, err := g.Generate(ctx, system, turns)
		if err != nil {
			return "", err
		}
		return reply, onDelta("", reply)
	}

	g.mu.Lock()
	g.calls++
	g.systems = append(g.systems, system)
	g.seen = append(g.seen, append([]model.Turn(nil), turns...))
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}
	for _, th := range g.Thinking {
		if err := onDelta(th, ""); err != nil {
			return "", err
		}
	}
	full := ""
	for _, c := range g.Chunks {
		full += c
		if err := onDelta("", c); err != nil {
			return "", err
		}
	}
	return full, nil
}

func (g *fakeGenerator) lastTurns() []model.Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.seen) == 0 {
		return nil
	}
	return g.seen[len(g.seen)-1]
}

// hashEmbedder maps each text to a deterministic vector derived from its FNV hash
type hashEmbedder struct {
	mu    sync.Mutex
	dim   int
	calls int
	texts int
	err   error
}

func (e *hashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.texts += len(texts)
	e.mu.Unlock()

	if e.err != nil {
		return nil, e.err
	}
	dim := e.dim
	if dim == 0 {
		dim = 16
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashVector(text, dim)
	}
	return out, nil
}

func hashVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}
	return vector
}

// fakeSearcher returns fixed hits and records the queries it saw
type fakeSearcher struct {
	hits    []model.SemanticHit
	byQuery map[string][]model.SemanticHit
	err     error
	queries []string
	sizes   []int
}

func (s *fakeSearcher) Search(ctx context.Context, query string, n int) ([]model.SemanticHit, error) {
	s.queries = append(s.queries, query)
	s.sizes = append(s.sizes, n)
	if s.err != nil {
		return nil, s.err
	}
	hits := s.hits
	if h, ok := s.byQuery[query]; ok {
		hits = h
	}
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

// fakeStore is an in-memory ListingStore
type fakeStore struct {
	rent       []model.RentListing
	sell       []model.SellListing
	stats      *model.MarketStats
	student    []model.AggregateStat
	family     []model.AggregateStat
	investment []model.AggregateStat
	overview   []model.AggregateStat
	compare    map[string]model.AggregateStat
	err        error

	rentFilters []model.ListingFilter
	sellFilters []model.ListingFilter
	studentArgs []float64
	limits      []int
	compared    [][2]string
}

func (s *fakeStore) SearchRent(ctx context.Context, filter model.ListingFilter) ([]model.RentListing, error) {
	s.rentFilters = append(s.rentFilters, filter)
	if s.err != nil {
		return nil, s.err
	}
	var out []model.RentListing
	for _, l := range s.rent {
		if filter.MaxPrice != nil && float64(l.Price) > *filter.MaxPrice {
			continue
		}
		out = append(out, l)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeStore) SearchSell(ctx context.Context, filter model.ListingFilter) ([]model.SellListing, error) {
	s.sellFilters = append(s.sellFilters, filter)
	if s.err != nil {
		return nil, s.err
	}
	return s.sell, nil
}

func (s *fakeStore) MarketStats(ctx context.Context) (*model.MarketStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.stats == nil {
		return &model.MarketStats{}, nil
	}
	return s.stats, nil
}

func (s *fakeStore) StudentDistricts(ctx context.Context, maxRent float64, limit int) ([]model.AggregateStat, error) {
	s.studentArgs = append(s.studentArgs, maxRent)
	s.limits = append(s.limits, limit)
	return s.student, s.err
}

func (s *fakeStore) FamilyDistricts(ctx context.Context, limit int) ([]model.AggregateStat, error) {
	s.limits = append(s.limits, limit)
	return s.family, s.err
}

func (s *fakeStore) InvestmentDistricts(ctx context.Context, limit int) ([]model.AggregateStat, error) {
	s.limits = append(s.limits, limit)
	return s.investment, s.err
}

func (s *fakeStore) DistrictOverview(ctx context.Context, limit int) ([]model.AggregateStat, error) {
	s.limits = append(s.limits, limit)
	return s.overview, s.err
}

func (s *fakeStore) CompareDistricts(ctx context.Context, first, second string) (*model.DistrictComparison, error) {
	s.compared = append(s.compared, [2]string{first, second})
	if s.err != nil {
		return nil, s.err
	}
	return &model.DistrictComparison{
		First:      first,
		Second:     second,
		FirstStat:  s.compare[first],
		SecondStat: s.compare[second],
	}, nil
}

// fakeListingSource feeds the knowledge base
type fakeListingSource struct {
	listings []model.RentListing
	err      error
}

func (s *fakeListingSource) AllRentListings(ctx context.Context) ([]model.RentListing, error) {
	return s.listings, s.err
}

func rentListing(id int64, price int64, district, disposition string) model.RentListing {
	return model.RentListing{Listing: model.Listing{
		ID:          id,
		Price:       price,
		District:    strPtr(district),
		Disposition: strPtr(disposition),
	}}
}
