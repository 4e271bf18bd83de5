package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/shoplens/searchcore/internal/core/domain"
)

// Store implements the sparse retrieval channel: Postgres full-text search
// over product chunks with the same metadata predicate shape the vector
// index accepts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent service startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS product_chunks (
	product_id TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	chunk_text TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	price DOUBLE PRECISION NOT NULL DEFAULT 0,
	source TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('simple', chunk_text)) STORED,
	PRIMARY KEY (product_id, chunk_id)
);
CREATE INDEX IF NOT EXISTS product_chunks_tsv_idx ON product_chunks USING GIN (tsv);
CREATE INDEX IF NOT EXISTS product_chunks_category_idx ON product_chunks (category);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Search(
	ctx context.Context,
	text string,
	filter domain.FilterPredicate,
	limit int,
) ([]domain.Candidate, error) {
	query := `
SELECT product_id, chunk_id, chunk_text, category, brand, price, source, language,
       ts_rank_cd(tsv, websearch_to_tsquery('simple', $1)) AS score
FROM product_chunks
WHERE tsv @@ websearch_to_tsquery('simple', $1)`
	args := []any{text}

	appendClause := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}
	if filter.Category != "" {
		appendClause(" AND category = $%d", filter.Category)
	}
	if filter.Brand != "" {
		appendClause(" AND brand = $%d", filter.Brand)
	}
	if filter.Source != "" {
		appendClause(" AND source = $%d", filter.Source)
	}
	if filter.Language != "" {
		appendClause(" AND language = $%d", filter.Language)
	}
	if filter.PriceMin != nil {
		appendClause(" AND price >= $%d", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		appendClause(" AND price <= $%d", *filter.PriceMax)
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY score DESC, product_id, chunk_id LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var cand domain.Candidate
		cand.Channel = domain.ChannelSparse
		if err := rows.Scan(
			&cand.ProductID,
			&cand.ChunkID,
			&cand.Text,
			&cand.Metadata.Category,
			&cand.Metadata.Brand,
			&cand.Metadata.Price,
			&cand.Metadata.Source,
			&cand.Metadata.Language,
			&cand.Score,
		); err != nil {
			return nil, fmt.Errorf("scan keyword row: %w", err)
		}
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rows: %w", err)
	}
	return out, nil
}
