package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

// ErrSourceExists is returned by Add when a source with the same feed URL is already stored.
var ErrSourceExists = errors.New("source with this feed url already exists")

type SourcePostgresStorage struct {
	db *sqlx.DB
}

func NewSourcePostgresStorage(db *sqlx.DB) *SourcePostgresStorage {
	return &SourcePostgresStorage{db: db}
}

func (s *SourcePostgresStorage) Sources(ctx context.Context) ([]model.Source, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var sources []dbSource
	if err := conn.SelectContext(ctx, &sources, `SELECT id, name, feed_url, enabled, created_at FROM sources ORDER BY id`); err != nil {
		return nil, err
	}

	return lo.Map(sources, func(source dbSource, _ int) model.Source {
		return model.Source(source)
	}), nil
}

// EnabledSources lists the sources an ingestion run should pull.
func (s *SourcePostgresStorage) EnabledSources(ctx context.Context) ([]model.Source, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var sources []dbSource
	if err := conn.SelectContext(
		ctx,
		&sources,
		`SELECT id, name, feed_url, enabled, created_at FROM sources WHERE enabled = true ORDER BY id`,
	); err != nil {
		return nil, err
	}

	return lo.Map(sources, func(source dbSource, _ int) model.Source {
		return model.Source(source)
	}), nil
}

func (s *SourcePostgresStorage) SourceByID(ctx context.Context, id int64) (*model.Source, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var source dbSource
	if err := conn.GetContext(
		ctx,
		&source,
		`SELECT id, name, feed_url, enabled, created_at FROM sources WHERE id = $1`,
		id,
	); err != nil {
		return nil, err
	}

	return (*model.Source)(&source), nil
}

// Add stores a new source. A source whose feed URL is already known is left as is
// and ErrSourceExists is returned.
func (s *SourcePostgresStorage) Add(ctx context.Context, source model.Source) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}

	var id int64

	row := conn.QueryRowxContext(
		ctx,
		`INSERT INTO sources (name, feed_url, enabled, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (feed_url) DO NOTHING RETURNING id`,
		source.Name,
		source.FeedURL,
		source.Enabled,
		source.CreatedAt,
	)

	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSourceExists
		}
		return 0, err
	}

	return id, nil
}

// SetEnabled switches a source on or off. Returns sql.ErrNoRows for an unknown id.
func (s *SourcePostgresStorage) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, `UPDATE sources SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (s *SourcePostgresStorage) Delete(ctx context.Context, id int64) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id); err != nil {
		return err
	}

	return nil
}

type dbSource struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	FeedURL   string    `db:"feed_url"`
	Enabled   bool      `db:"enabled"`
	CreatedAt time.Time `db:"created_at"`
}
