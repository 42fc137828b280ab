package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

// PersistError means a batch insert statement failed and nothing from the batch was stored.
type PersistError struct {
	Rows int
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %d articles: %v", e.Rows, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

var articleColumns = []string{
	"source_id",
	"title",
	"summary",
	"short_summary",
	"extended_summary",
	"url",
	"image",
	"author",
	"published_at",
	"created_at",
}

type ArticlePostgresStorage struct {
	db *sqlx.DB
}

func NewArticleStorage(db *sqlx.DB) *ArticlePostgresStorage {
	return &ArticlePostgresStorage{db: db}
}

// ExistingURLs returns which of urls are already stored, using a single query.
func (s *ArticlePostgresStorage) ExistingURLs(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var existing []string
	if err := conn.SelectContext(
		ctx,
		&existing,
		`SELECT url FROM articles WHERE url = ANY($1)`,
		pq.StringArray(urls),
	); err != nil {
		return nil, err
	}

	return existing, nil
}

// InsertAll writes the articles with one multi-row statement and returns how many rows were
// actually inserted. Rows whose url was stored in the meantime by a concurrent run are not
// inserted and are not an error.
func (s *ArticlePostgresStorage) InsertAll(ctx context.Context, articles []model.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()

	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("articles").
		Columns(articleColumns...)

	for _, a := range articles {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		builder = builder.Values(
			a.SourceID,
			a.Title,
			nullString(a.Summary),
			a.ShortSummary,
			a.ExtendedSummary,
			a.URL,
			nullString(a.Image),
			nullString(a.Author),
			a.PublishedAt.UTC(),
			createdAt,
		)
	}

	query, args, err := builder.Suffix("ON CONFLICT (url) DO NOTHING RETURNING url").ToSql()
	if err != nil {
		return 0, &PersistError{Rows: len(articles), Err: err}
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, &PersistError{Rows: len(articles), Err: err}
	}
	defer conn.Close()

	var inserted []string
	if err := conn.SelectContext(ctx, &inserted, query, args...); err != nil {
		return 0, &PersistError{Rows: len(articles), Err: err}
	}

	return len(inserted), nil
}

// AllNotPosted returns the newest articles published after since that were not posted yet.
func (s *ArticlePostgresStorage) AllNotPosted(ctx context.Context, since time.Time, limit uint64) ([]model.Article, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(
			"id", "source_id", "title", "summary", "short_summary", "extended_summary",
			"url", "image", "author", "published_at", "posted_at", "created_at",
		).
		From("articles").
		Where(sq.Eq{"posted_at": nil}).
		Where(sq.GtOrEq{"published_at": since.UTC()}).
		OrderBy("published_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	var articles []dbArticle
	if err := conn.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, err
	}

	return lo.Map(articles, func(a dbArticle, _ int) model.Article {
		return a.toModel()
	}), nil
}

func (s *ArticlePostgresStorage) MarkPosted(ctx context.Context, id int64) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(
		ctx,
		`UPDATE articles SET posted_at = $1 WHERE id = $2`,
		time.Now().UTC(),
		id,
	); err != nil {
		return err
	}

	return nil
}

// DeleteAll removes every article and returns how many were removed.
func (s *ArticlePostgresStorage) DeleteAll(ctx context.Context) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, `DELETE FROM articles`)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type dbArticle struct {
	ID              int64          `db:"id"`
	SourceID        int64          `db:"source_id"`
	Title           string         `db:"title"`
	Summary         sql.NullString `db:"summary"`
	ShortSummary    string         `db:"short_summary"`
	ExtendedSummary string         `db:"extended_summary"`
	URL             string         `db:"url"`
	Image           sql.NullString `db:"image"`
	Author          sql.NullString `db:"author"`
	PublishedAt     time.Time      `db:"published_at"`
	PostedAt        sql.NullTime   `db:"posted_at"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (a dbArticle) toModel() model.Article {
	return model.Article{
		ID:              a.ID,
		SourceID:        a.SourceID,
		Title:           a.Title,
		Summary:         a.Summary.String,
		ShortSummary:    a.ShortSummary,
		ExtendedSummary: a.ExtendedSummary,
		URL:             a.URL,
		Image:           a.Image.String,
		Author:          a.Author.String,
		PublishedAt:     a.PublishedAt,
		PostedAt:        a.PostedAt.Time,
		CreatedAt:       a.CreatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
