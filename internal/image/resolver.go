package image

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

type Options struct {
	// Image-less articles scraped per source run, the rest stay without image
	ScrapeLimit int
	// Pages fetched at once
	Concurrency int
	// Per page
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		ScrapeLimit: 20,
		Concurrency: 5,
		Timeout:     8 * time.Second,
	}
}

// Resolver picks a representative image for feed items.
type Resolver struct {
	client *http.Client
	opts   Options
}

func NewResolver(client *http.Client, opts Options) *Resolver {
	if client == nil {
		client = &http.Client{}
	}

	return &Resolver{client: client, opts: opts}
}

// Resolve looks only at what the feed carries: the enclosure, the item image and the item HTML.
func (r *Resolver) Resolve(item model.Item) string {
	if IsValidImageURL(item.EnclosureURL) {
		return strings.TrimSpace(item.EnclosureURL)
	}
	if IsValidImageURL(item.ImageURL) {
		return strings.TrimSpace(item.ImageURL)
	}

	for _, html := range []string{item.Content, item.Summary} {
		if img := ExtractFromHTML(html, item.Link); img != "" {
			return img
		}
	}

	return ""
}

// Fill scrapes article pages for the first ScrapeLimit articles that still have no image.
func (r *Resolver) Fill(ctx context.Context, articles []*model.Article) {
	missing := lo.Filter(articles, func(a *model.Article, _ int) bool {
		return a.Image == ""
	})
	if len(missing) == 0 || r.opts.ScrapeLimit <= 0 {
		return
	}
	if len(missing) > r.opts.ScrapeLimit {
		missing = missing[:r.opts.ScrapeLimit]
	}

	scraped := r.ScrapeBatch(ctx, lo.Map(missing, func(a *model.Article, _ int) string {
		return a.URL
	}))

	for _, article := range missing {
		if img, ok := scraped[article.URL]; ok {
			article.Image = img
		}
	}
}
