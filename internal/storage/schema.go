package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Feed supplied values have no reliable upper length, so every text column is unbounded.
// A single over-long value would otherwise fail the whole batch insert on every run.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		feed_url TEXT NOT NULL UNIQUE,
		enabled BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		source_id BIGINT NOT NULL REFERENCES sources (id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		summary TEXT,
		short_summary TEXT NOT NULL DEFAULT '',
		extended_summary TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		image TEXT,
		author TEXT,
		published_at TIMESTAMPTZ NOT NULL,
		posted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// Databases created with length limited columns are widened in place.
	`ALTER TABLE sources
		ALTER COLUMN name TYPE TEXT,
		ALTER COLUMN feed_url TYPE TEXT`,
	`ALTER TABLE articles
		ALTER COLUMN title TYPE TEXT,
		ALTER COLUMN url TYPE TEXT,
		ALTER COLUMN image TYPE TEXT,
		ALTER COLUMN author TYPE TEXT`,
	`CREATE INDEX IF NOT EXISTS articles_published_at_idx ON articles (published_at DESC)`,
}

// Ensure creates the tables and indexes the ingestor needs if they are missing.
func Ensure(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}
