package repository

import (
	"context"
	"errors"
	"fmt"

	"realty/internal/model"

	"github.com/jmoiron/sqlx"
)

// ErrUnknownBackend is returned by NewVectorIndex for an unrecognized backend name
var ErrUnknownBackend = errors.New("unknown vector index backend")

// VectorIndex stores listing documents with their embeddings and answers
// nearest-neighbour queries by cosine distance
type VectorIndex interface {
	// EnsureSchema creates the collection or table when it does not exist yet
	EnsureSchema(ctx context.Context) error
	// ExistingIDs returns the subset of ids already present in the index
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	// Upsert inserts or replaces documents by id
	Upsert(ctx context.Context, docs []model.ListingDocument) error
	// Query returns up to n documents closest to embedding, nearest first.
	// An empty index yields an empty slice, not an error.
	Query(ctx context.Context, embedding []float32, n int) ([]model.SemanticHit, error)
	// Count returns the number of indexed documents
	Count(ctx context.Context) (int, error)
	Close() error
}

// VectorIndexOptions configures NewVectorIndex
type VectorIndexOptions struct {
	Backend    string // pgvector, qdrant or memory
	Collection string
	Dimensions int
	QdrantHost string
	QdrantPort int
}

// NewVectorIndex builds the configured backend. db is only used by pgvector.
func NewVectorIndex(opts VectorIndexOptions, db *sqlx.DB) (VectorIndex, error) {
	switch opts.Backend {
	case "pgvector":
		if db == nil || db.DriverName() != "postgres" {
			return nil, fmt.Errorf("pgvector index requires a postgres connection")
		}
		return NewPgVectorIndex(db, opts.Collection, opts.Dimensions), nil
	case "qdrant":
		return NewQdrantIndex(opts.QdrantHost, opts.QdrantPort, opts.Collection, opts.Dimensions)
	case "memory":
		return NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
