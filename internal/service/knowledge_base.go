package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"realty/internal/model"
	"realty/internal/repository"
	"realty/pkg/log"

	"github.com/dustin/go-humanize"
)

// DefaultIndexBatchSize bounds how many documents are embedded per request
const DefaultIndexBatchSize = 32

// RentListingSource supplies the listings the knowledge base indexes
type RentListingSource interface {
	AllRentListings(ctx context.Context) ([]model.RentListing, error)
}

// KnowledgeBase maintains and queries the vector index of rent listing documents
type KnowledgeBase struct {
	listings  RentListingSource
	index     repository.VectorIndex
	embedder  Embedder
	batchSize int
}

// NewKnowledgeBase creates a knowledge base
func NewKnowledgeBase(listings RentListingSource, index repository.VectorIndex, embedder Embedder, batchSize int) *KnowledgeBase {
	if batchSize <= 0 {
		batchSize = DefaultIndexBatchSize
	}
	return &KnowledgeBase{listings: listings, index: index, embedder: embedder, batchSize: batchSize}
}

// DocumentID derives the index id of a rent listing from its primary key
func DocumentID(listingID int64) string {
	return fmt.Sprintf("r_%d", listingID)
}

// Build embeds and indexes every rent listing that is not indexed yet.
// Re-running over unchanged data inserts nothing.
func (kb *KnowledgeBase) Build(ctx context.Context) (model.IndexBuildReport, error) {
	var report model.IndexBuildReport

	if err := kb.index.EnsureSchema(ctx); err != nil {
		return report, err
	}

	listings, err := kb.listings.AllRentListings(ctx)
	if err != nil {
		return report, err
	}
	report.Total = len(listings)

	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = DocumentID(l.ID)
	}
	existing, err := kb.index.ExistingIDs(ctx, ids)
	if err != nil {
		return report, err
	}
	report.Existing = len(existing)

	pending := make([]model.RentListing, 0, len(listings))
	for i, l := range listings {
		if _, ok := existing[ids[i]]; !ok {
			pending = append(pending, l)
		}
	}
	if len(pending) == 0 {
		log.Infof("Vector index is up to date (%d documents)", report.Existing)
		return report, nil
	}

	for start := 0; start < len(pending); start += kb.batchSize {
		end := start + kb.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		docs := make([]model.ListingDocument, len(batch))
		texts := make([]string, len(batch))
		for i, l := range batch {
			docs[i] = ListingDocument(l)
			texts[i] = docs[i].Text
		}

		vectors, err := kb.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(docs) {
			return report, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
		}
		for i := range docs {
			docs[i].Embedding = vectors[i]
		}

		if err := kb.index.Upsert(ctx, docs); err != nil {
			return report, err
		}
		report.Inserted += len(docs)
		log.Infof("Indexed %d/%d", end, len(pending))
	}

	return report, nil
}

// Search returns the n documents nearest to the query text. An empty index yields no hits.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, n int) ([]model.SemanticHit, error) {
	if n <= 0 {
		return []model.SemanticHit{}, nil
	}

	vectors, err := kb.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return []model.SemanticHit{}, nil
	}

	hits, err := kb.index.Query(ctx, vectors[0], n)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []model.SemanticHit{}
	}
	return hits, nil
}

// Count returns the number of indexed documents
func (kb *KnowledgeBase) Count(ctx context.Context) (int, error) {
	return kb.index.Count(ctx)
}

// ListingDocument renders the indexed sentence and metadata of a rent listing
func ListingDocument(l model.RentListing) model.ListingDocument {
	return model.ListingDocument{
		ID:       DocumentID(l.ID),
		Text:     ListingText(l),
		Metadata: listingMetadata(l),
	}
}

// ListingText is the deterministic sentence that is embedded and returned on hits
func ListingText(l model.RentListing) string {
	parts := make([]string, 0, 9)

	disposition := "apartment"
	if l.Disposition != nil && *l.Disposition != "" {
		disposition = *l.Disposition
	}
	parts = append(parts, fmt.Sprintf("%s in %s", disposition, l.DistrictName()))
	parts = append(parts, fmt.Sprintf("%s CZK per month", humanize.Comma(l.Price)))
	if l.Surface != nil {
		parts = append(parts, fmt.Sprintf("%dm²", *l.Surface))
	}

	if l.DistanceToMetroKm != nil && *l.DistanceToMetroKm > 0 {
		km := *l.DistanceToMetroKm
		metro := "nearest"
		if l.NearestMetro != nil && *l.NearestMetro != "" {
			metro = *l.NearestMetro
		}
		switch {
		case km < 0.3:
			parts = append(parts, fmt.Sprintf("steps from %s metro", metro))
		case km < 0.7:
			parts = append(parts, fmt.Sprintf("walking distance to %s metro", metro))
		default:
			parts = append(parts, fmt.Sprintf("%skm to %s metro", formatKm(km), metro))
		}
	}

	if l.DistanceToCenter != nil && *l.DistanceToCenter > 0 {
		switch d := *l.DistanceToCenter; {
		case d < 2:
			parts = append(parts, "city center location")
		case d < 5:
			parts = append(parts, "close to city center")
		default:
			parts = append(parts, "suburban quiet area")
		}
	}

	if l.Furnishing != nil {
		switch *l.Furnishing {
		case "furnished":
			parts = append(parts, "fully furnished move-in ready")
		case "partly_furnished":
			parts = append(parts, "partially furnished")
		case "not_furnished":
			parts = append(parts, "unfurnished empty")
		}
	}

	if l.Balcony {
		parts = append(parts, "has balcony")
	}
	if l.Garage {
		parts = append(parts, "has parking garage")
	}

	switch {
	case l.Price > 0 && l.Price < 13000:
		parts = append(parts, "budget affordable student")
	case l.Price > 35000:
		parts = append(parts, "luxury premium")
	}

	return strings.Join(parts, ", ") + "."
}

// formatKm prints a distance with at least one decimal: 1 -> "1.0", 1.25 -> "1.25"
func formatKm(km float64) string {
	if km == math.Trunc(km) {
		return strconv.FormatFloat(km, 'f', 1, 64)
	}
	return strconv.FormatFloat(km, 'f', -1, 64)
}

func listingMetadata(l model.RentListing) model.HitMetadata {
	meta := model.HitMetadata{
		Price:       float64(l.Price),
		District:    l.DistrictName(),
		Disposition: "Apartment",
	}
	if l.Disposition != nil && *l.Disposition != "" {
		meta.Disposition = *l.Disposition
	}
	if l.Surface != nil {
		meta.Surface = float64(*l.Surface)
	}
	if l.DistanceToMetroKm != nil {
		meta.DistanceToMetro = *l.DistanceToMetroKm
	}
	return meta
}
