package source

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/SlyMarbo/rss"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

// ErrEmptyDocument is returned for a feed response without a body.
var ErrEmptyDocument = errors.New("empty feed document")

// ParseError means the fetched document is not a feed we can read.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns raw RSS, Atom or JSON feed documents into items.
// The format is detected from the document itself.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the document with gofeed and falls back to the more lenient rss package
// when gofeed gives up on it.
func (p *Parser) Parse(data []byte) ([]model.Item, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: ErrEmptyDocument}
	}

	// gofeed parsers keep per-document state, so every call gets its own.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err == nil {
		return lo.Map(feed.Items, func(item *gofeed.Item, _ int) model.Item {
			return fromGofeed(item)
		}), nil
	}

	// The lenient parser accepts almost any XML, so an empty result there means no feed.
	fallback, fallbackErr := rss.Parse(data)
	if fallbackErr != nil || fallback == nil || len(fallback.Items) == 0 {
		return nil, &ParseError{Err: err}
	}

	return lo.Map(fallback.Items, func(item *rss.Item, _ int) model.Item {
		return fromRSS(item)
	}), nil
}

func fromGofeed(item *gofeed.Item) model.Item {
	result := model.Item{
		Title:      strings.TrimSpace(item.Title),
		Categories: item.Categories,
		Link:       strings.TrimSpace(item.Link),
		Summary:    item.Description,
		Content:    item.Content,
		Author:     gofeedAuthor(item),
	}

	switch {
	case item.PublishedParsed != nil:
		result.Date = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		result.Date = *item.UpdatedParsed
	}

	for _, enclosure := range item.Enclosures {
		if enclosure != nil && isImageEnclosure(enclosure.URL, enclosure.Type) {
			result.EnclosureURL = strings.TrimSpace(enclosure.URL)
			break
		}
	}

	if item.Image != nil {
		result.ImageURL = strings.TrimSpace(item.Image.URL)
	}

	return result
}

func gofeedAuthor(item *gofeed.Item) string {
	for _, person := range item.Authors {
		if person != nil && strings.TrimSpace(person.Name) != "" {
			return strings.TrimSpace(person.Name)
		}
	}

	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name)
	}

	if item.DublinCoreExt != nil {
		if creator, ok := lo.Coalesce(item.DublinCoreExt.Creator...); ok {
			return strings.TrimSpace(creator)
		}
	}

	return ""
}

func fromRSS(item *rss.Item) model.Item {
	result := model.Item{
		Title:      strings.TrimSpace(item.Title),
		Categories: item.Categories,
		Link:       strings.TrimSpace(item.Link),
		Summary:    item.Summary,
		Content:    item.Content,
		Date:       item.Date,
	}

	for _, enclosure := range item.Enclosures {
		if enclosure != nil && isImageEnclosure(enclosure.URL, enclosure.Type) {
			result.EnclosureURL = strings.TrimSpace(enclosure.URL)
			break
		}
	}

	if item.Image != nil {
		result.ImageURL = strings.TrimSpace(item.Image.URL)
	}

	return result
}

// Podcast feeds put audio in enclosures; only untyped or image enclosures can be thumbnails.
func isImageEnclosure(url, mimeType string) bool {
	if strings.TrimSpace(url) == "" {
		return false
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "" || strings.HasPrefix(mimeType, "image/")
}
