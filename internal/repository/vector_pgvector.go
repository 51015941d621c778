package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"realty/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PgVectorIndex keeps listing documents in a Postgres table with a pgvector column
type PgVectorIndex struct {
	db         *sqlx.DB
	table      string
	dimensions int
}

// NewPgVectorIndex creates an index backed by the given table
func NewPgVectorIndex(db *sqlx.DB, table string, dimensions int) *PgVectorIndex {
	if !tableNamePattern.MatchString(table) {
		table = "listing_documents"
	}
	return &PgVectorIndex{db: db, table: table, dimensions: dimensions}
}

func (p *PgVectorIndex) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.table, p.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, p.table, p.table),
	}

	return withConn(ctx, p.db, func(conn *sqlx.Conn) error {
		for _, stmt := range statements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to ensure vector schema: %w", err)
			}
		}
		return nil
	})
}

func (p *PgVectorIndex) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	var found []string
	query := fmt.Sprintf(`SELECT id FROM %s WHERE id = ANY($1)`, p.table)
	err := withConn(ctx, p.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &found, query, pq.Array(ids))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read indexed ids: %w", err)
	}

	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}

func (p *PgVectorIndex) Upsert(ctx context.Context, docs []model.ListingDocument) error {
	if len(docs) == 0 {
		return nil
	}

	return withConn(ctx, p.db, func(conn *sqlx.Conn) error {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, content, metadata, embedding, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE
			SET content = EXCLUDED.content, metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding, updated_at = NOW()`, p.table))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, doc := range docs {
			metadata, err := json.Marshal(doc.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata for %s: %w", doc.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, doc.ID, doc.Text, string(metadata), pgvector.NewVector(doc.Embedding)); err != nil {
				return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

type pgVectorRow struct {
	Content  string  `db:"content"`
	Metadata []byte  `db:"metadata"`
	Distance float64 `db:"distance"`
}

func (p *PgVectorIndex) Query(ctx context.Context, embedding []float32, n int) ([]model.SemanticHit, error) {
	if n <= 0 {
		return []model.SemanticHit{}, nil
	}

	query := fmt.Sprintf(`
		SELECT content, metadata, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1, id
		LIMIT $2`, p.table)

	var rows []pgVectorRow
	err := withConn(ctx, p.db, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &rows, query, pgvector.NewVector(embedding), n)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vector index: %w", err)
	}

	hits := make([]model.SemanticHit, 0, len(rows))
	for _, row := range rows {
		hit := model.SemanticHit{Text: row.Content, Distance: row.Distance}
		if err := json.Unmarshal(row.Metadata, &hit.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode hit metadata: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (p *PgVectorIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := withConn(ctx, p.db, func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &count, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count indexed documents: %w", err)
	}
	return count, nil
}

// Close is a no-op: the connection pool belongs to the listing repository
func (p *PgVectorIndex) Close() error { return nil }
