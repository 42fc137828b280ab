package ingest

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tomakado/containers/set"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/link"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

const (
	// DefaultMaxItemsPerFeed bounds how many items of one feed are looked at per run.
	DefaultMaxItemsPerFeed = 80
	// DefaultFetchInterval is used when no positive interval is configured.
	DefaultFetchInterval = 10 * time.Minute
)

type SourceProvider interface {
	EnabledSources(ctx context.Context) ([]model.Source, error)
}

type ArticleStorage interface {
	ExistingURLs(ctx context.Context, urls []string) ([]string, error)
	InsertAll(ctx context.Context, articles []model.Article) (int, error)
}

type Source interface {
	ID() int64
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) model.Summary
}

type ImageResolver interface {
	Resolve(item model.Item) string
	Fill(ctx context.Context, articles []*model.Article)
}

// SourceFactory builds a feed client for a stored source.
type SourceFactory func(model.Source) Source

type Options struct {
	FetchInterval   time.Duration
	FilterKeywords  []string
	MaxItemsPerFeed int
	// Called after every scheduled run started by Start
	AfterRun func(ctx context.Context, reports []model.IngestReport)
}

// Ingestor pulls every enabled source and stores the articles it has not seen yet.
type Ingestor struct {
	articles   ArticleStorage
	sources    SourceProvider
	newSource  SourceFactory
	summarizer Summarizer
	images     ImageResolver

	fetchInterval   time.Duration
	filterKeywords  []string
	maxItemsPerFeed int
	afterRun        func(ctx context.Context, reports []model.IngestReport)

	now func() time.Time
}

func New(
	articles ArticleStorage,
	sources SourceProvider,
	newSource SourceFactory,
	summarizer Summarizer,
	images ImageResolver,
	opts Options,
) *Ingestor {
	if opts.MaxItemsPerFeed <= 0 {
		opts.MaxItemsPerFeed = DefaultMaxItemsPerFeed
	}
	if opts.FetchInterval <= 0 {
		log.Printf("[WARN] fetch interval %s is not positive, using %s", opts.FetchInterval, DefaultFetchInterval)
		opts.FetchInterval = DefaultFetchInterval
	}

	keywords := make([]string, 0, len(opts.FilterKeywords))
	for _, keyword := range opts.FilterKeywords {
		if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}

	return &Ingestor{
		articles:        articles,
		sources:         sources,
		newSource:       newSource,
		summarizer:      summarizer,
		images:          images,
		fetchInterval:   opts.FetchInterval,
		filterKeywords:  keywords,
		maxItemsPerFeed: opts.MaxItemsPerFeed,
		afterRun:        opts.AfterRun,
		now:             time.Now,
	}
}

// Start runs an ingestion right away and then every fetch interval until ctx is done.
// A run that cannot read the source list is logged and retried on the next tick.
func (in *Ingestor) Start(ctx context.Context) error {
	ticker := time.NewTicker(in.fetchInterval)
	defer ticker.Stop()

	in.scheduledRun(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			in.scheduledRun(ctx)
		}
	}
}

func (in *Ingestor) scheduledRun(ctx context.Context) {
	reports, err := in.IngestAll(ctx)
	if err != nil {
		log.Printf("[ERROR] ingest run failed: %v", err)
		return
	}

	if in.afterRun != nil {
		in.afterRun(ctx, reports)
	}
}

// IngestAll ingests all enabled sources concurrently and returns one report per source,
// in the order the sources were listed. A failing source never affects the others;
// the only error is failing to list the sources.
func (in *Ingestor) IngestAll(ctx context.Context) ([]model.IngestReport, error) {
	runID := uuid.NewString()

	sources, err := in.sources.EnabledSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled sources: %w", err)
	}

	log.Printf("[INFO] ingest run %s: %d sources", runID, len(sources))
	started := in.now()

	var (
		reports = make([]model.IngestReport, len(sources))
		wg      sync.WaitGroup
	)

	for i, src := range sources {
		wg.Add(1)

		go func(i int, src model.Source) {
			defer wg.Done()
			reports[i] = in.ingestSource(ctx, src)
		}(i, src)
	}

	wg.Wait()

	var total model.IngestReport
	for _, r := range reports {
		total.NewArticles += r.NewArticles
		total.Skipped += r.Skipped
		total.Errors += r.Errors
	}
	log.Printf(
		"[INFO] ingest run %s done in %s: %d new, %d skipped, %d errors",
		runID, in.now().Sub(started).Round(time.Millisecond), total.NewArticles, total.Skipped, total.Errors,
	)

	return reports, nil
}

type candidate struct {
	item model.Item
	url  string
}

func (in *Ingestor) ingestSource(ctx context.Context, stored model.Source) (report model.IngestReport) {
	report.Source = stored.Name

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] source %s: panic: %v\n%s", stored.Name, r, debug.Stack())
			report.Errors++
		}
		log.Printf("[INFO] source %s: %d new, %d skipped, %d errors", stored.Name, report.NewArticles, report.Skipped, report.Errors)
	}()

	src := in.newSource(stored)

	items, err := src.Fetch(ctx)
	if err != nil {
		log.Printf("[ERROR] fetching items from source %s: %v", src.Name(), err)
		report.Errors++
		return report
	}

	if len(items) > in.maxItemsPerFeed {
		items = items[:in.maxItemsPerFeed]
	}

	candidates, skipped := in.filter(items)
	report.Skipped += skipped
	if len(candidates) == 0 {
		return report
	}

	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.url)
	}

	existing, err := in.articles.ExistingURLs(ctx, urls)
	if err != nil {
		log.Printf("[ERROR] checking known articles of source %s: %v", src.Name(), err)
		report.Errors++
		return report
	}

	known := set.New(existing...)
	fresh := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if known.Contains(c.url) {
			report.Skipped++
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return report
	}

	articles := make([]model.Article, len(fresh))
	for i, c := range fresh {
		articles[i] = in.buildArticle(ctx, src.ID(), c)
	}

	refs := make([]*model.Article, len(articles))
	for i := range articles {
		refs[i] = &articles[i]
	}
	in.images.Fill(ctx, refs)

	inserted, err := in.articles.InsertAll(ctx, articles)
	if err != nil {
		log.Printf("[ERROR] storing articles of source %s: %v", src.Name(), err)
		report.Errors++
		return report
	}

	report.NewArticles = inserted
	if lost := len(articles) - inserted; lost > 0 {
		log.Printf("[DEBUG] source %s: %d articles were stored by a concurrent run", src.Name(), lost)
		report.Errors += lost
	}

	return report
}

// filter drops unusable, filtered and repeated items and normalizes the rest.
func (in *Ingestor) filter(items []model.Item) ([]candidate, int) {
	var (
		candidates = make([]candidate, 0, len(items))
		seen       = make(map[string]struct{}, len(items))
		skipped    int
	)

	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Link) == "" {
			skipped++
			continue
		}

		if in.itemShouldBeSkipped(item) {
			skipped++
			continue
		}

		url := link.Normalize(strings.TrimSpace(item.Link))
		if _, ok := seen[url]; ok {
			skipped++
			continue
		}
		seen[url] = struct{}{}

		candidates = append(candidates, candidate{item: item, url: url})
	}

	return candidates, skipped
}

// itemShouldBeSkipped reports whether a filter keyword is one of the item categories
// or appears in its title.
func (in *Ingestor) itemShouldBeSkipped(item model.Item) bool {
	if len(in.filterKeywords) == 0 {
		return false
	}

	categories := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		categories = append(categories, strings.ToLower(strings.TrimSpace(c)))
	}
	categoriesSet := set.New(categories...)
	title := strings.ToLower(item.Title)

	for _, keyword := range in.filterKeywords {
		if categoriesSet.Contains(keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

func (in *Ingestor) buildArticle(ctx context.Context, sourceID int64, c candidate) model.Article {
	item := c.item

	var (
		title = strings.TrimSpace(item.Title)
		text  = plainText(item.Content)
	)
	if text == "" {
		text = plainText(item.Summary)
	}

	// Items carrying only a headline are summarized from it so posts are never blank.
	summaryInput := text
	if summaryInput == "" {
		summaryInput = title
	}
	summary := in.summarizer.Summarize(ctx, summaryInput)

	publishedAt := item.Date
	if publishedAt.IsZero() {
		publishedAt = in.now()
	}

	description := plainText(item.Summary)
	if description == "" {
		description = text
	}

	return model.Article{
		SourceID:        sourceID,
		Title:           title,
		Summary:         description,
		ShortSummary:    summary.Short,
		ExtendedSummary: summary.Extended,
		URL:             c.url,
		Image:           in.images.Resolve(item),
		Author:          strings.TrimSpace(item.Author),
		PublishedAt:     publishedAt.UTC(),
	}
}
