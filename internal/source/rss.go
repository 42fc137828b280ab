package source

import (
	"context"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

// Fetcher downloads raw feed documents.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FeedParser turns a feed document into items.
type FeedParser interface {
	Parse(data []byte) ([]model.Item, error)
}

// RSSSource is a feed source backed by HTTP and the feed parser.
type RSSSource struct {
	URL        string
	SourceID   int64
	SourceName string

	fetcher Fetcher
	parser  FeedParser
}

// NewRSSSourceFromModel builds a client for the feed described by the stored source.
func NewRSSSourceFromModel(m model.Source, fetcher Fetcher, parser FeedParser) RSSSource {
	return RSSSource{
		URL:        m.FeedURL,
		SourceID:   m.ID,
		SourceName: m.Name,
		fetcher:    fetcher,
		parser:     parser,
	}
}

// Fetch downloads and parses the feed. Errors are *FetchError or *ParseError.
func (s RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	data, err := s.fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return nil, err
	}

	items, err := s.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].SourceName = s.SourceName
	}

	return items, nil
}

func (s RSSSource) ID() int64 {
	return s.SourceID
}

func (s RSSSource) Name() string {
	return s.SourceName
}
