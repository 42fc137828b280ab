package model

import (
	"strings"
	"time"
)

// Item is a single entry of a parsed feed, before it becomes an article.
type Item struct {
	Title      string
	Categories []string
	Link       string
	// Publication date in the source, zero when the feed did not carry one
	Date time.Time
	// Plain description or snippet
	Summary string
	// Full HTML content when the feed carries it
	Content      string
	Author       string
	EnclosureURL string
	ImageURL     string
	SourceName   string
}

// Source is a feed the ingestor pulls from.
type Source struct {
	ID        int64
	Name      string
	FeedURL   string
	Enabled   bool
	CreatedAt time.Time
}

// Article is what we keep in the store, one row per normalized URL.
type Article struct {
	ID              int64
	SourceID        int64
	Title           string
	Summary         string
	ShortSummary    string
	ExtendedSummary string
	URL             string
	Image           string
	Author          string
	// Publication time in the source
	PublishedAt time.Time
	// Time the article was posted to the channel, zero until then
	PostedAt  time.Time
	CreatedAt time.Time
}

// Summary is the short hook plus the two-point extended summary of an article.
type Summary struct {
	Short    string `json:"shortSummary"`
	Extended string `json:"extendedSummary"`
}

// IngestReport is the outcome of one source in one ingestion run.
type IngestReport struct {
	Source      string `json:"source"`
	NewArticles int    `json:"newArticles"`
	Skipped     int    `json:"skipped"`
	Errors      int    `json:"errors"`
}

// SummaryPointsDelimiter joins the two points of an extended summary.
const SummaryPointsDelimiter = "|||"

// JoinSummaryPoints encodes one or two points; the delimiter is only present when both are set.
func JoinSummaryPoints(point1, point2 string) string {
	if point2 == "" {
		return point1
	}
	return point1 + SummaryPointsDelimiter + point2
}

// SummaryPoints splits an extended summary into its points.
// A summary without the delimiter is a single point.
func SummaryPoints(extended string) []string {
	trimmed := strings.TrimSpace(extended)
	if trimmed == "" {
		return nil
	}

	var points []string
	for _, part := range strings.Split(trimmed, SummaryPointsDelimiter) {
		if part = strings.TrimSpace(part); part != "" {
			points = append(points, part)
		}
	}

	if len(points) == 0 {
		return []string{trimmed}
	}

	return points
}
