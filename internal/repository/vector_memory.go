package repository

import (
	"context"
	"math"
	"sort"
	"sync"

	"realty/internal/model"
)

// MemoryIndex is a brute-force in-process vector index
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]model.ListingDocument
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]model.ListingDocument)}
}

func (m *MemoryIndex) EnsureSchema(ctx context.Context) error { return nil }

func (m *MemoryIndex) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := m.docs[id]; ok {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, docs []model.ListingDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		embedding := make([]float32, len(doc.Embedding))
		copy(embedding, doc.Embedding)
		doc.Embedding = embedding
		m.docs[doc.ID] = doc
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, embedding []float32, n int) ([]model.SemanticHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		id  string
		hit model.SemanticHit
	}
	results := make([]scored, 0, len(m.docs))
	for id, doc := range m.docs {
		results = append(results, scored{
			id: id,
			hit: model.SemanticHit{
				Text:     doc.Text,
				Metadata: doc.Metadata,
				Distance: cosineDistance(embedding, doc.Embedding),
			},
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].hit.Distance != results[j].hit.Distance {
			return results[i].hit.Distance < results[j].hit.Distance
		}
		return results[i].id < results[j].id
	})

	if n < 0 {
		n = 0
	}
	if len(results) > n {
		results = results[:n]
	}
	hits := make([]model.SemanticHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, r.hit)
	}
	return hits, nil
}

func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *MemoryIndex) Close() error { return nil }

// cosineDistance is 1 - cosine similarity; zero vectors are maximally distant
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
