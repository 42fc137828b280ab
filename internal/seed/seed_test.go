package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/storage"
)

const sourcesYAML = `
sources:
  - name: TechCrunch
    feed_url: https://techcrunch.com/feed/
  - name: Ars Technica
    feed_url: https://arstechnica.com/feed/
    enabled: false
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(sourcesYAML), 0o600); err != nil {
		t.Fatalf("write sources: %v", err)
	}

	sources, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name != "TechCrunch" || !sources[0].Enabled {
		t.Fatalf("unexpected first source: %+v", sources[0])
	}
	if sources[1].FeedURL != "https://arstechnica.com/feed/" || sources[1].Enabled {
		t.Fatalf("unexpected second source: %+v", sources[1])
	}
}

func TestParseRejectsIncompleteEntries(t *testing.T) {
	if _, err := Parse([]byte("sources:\n  - name: NoURL\n")); err == nil {
		t.Fatalf("expected error for a source without feed_url")
	}
	if _, err := Parse([]byte("sources: [")); err == nil {
		t.Fatalf("expected error for broken yaml")
	}
}

type fakeAdder struct {
	known map[string]bool
	err   error
}

func (a *fakeAdder) Add(_ context.Context, src model.Source) (int64, error) {
	if a.err != nil {
		return 0, a.err
	}
	if a.known[src.FeedURL] {
		return 0, storage.ErrSourceExists
	}
	a.known[src.FeedURL] = true
	return int64(len(a.known)), nil
}

func TestApplySkipsKnownSources(t *testing.T) {
	sources, err := Parse([]byte(sourcesYAML))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	adder := &fakeAdder{known: map[string]bool{"https://techcrunch.com/feed/": true}}

	added, err := Apply(context.Background(), adder, sources)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 added source, got %d", added)
	}

	adder.err = errors.New("database is down")
	if _, err := Apply(context.Background(), adder, sources); err == nil {
		t.Fatalf("expected storage errors to be returned")
	}
}
