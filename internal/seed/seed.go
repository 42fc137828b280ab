package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
	"github.com/kovalyov-valentin/news-feed-ingestor/internal/storage"
)

type SourceAdder interface {
	Add(ctx context.Context, source model.Source) (int64, error)
}

type file struct {
	Sources []entry `yaml:"sources"`
}

type entry struct {
	Name    string `yaml:"name"`
	FeedURL string `yaml:"feed_url"`
	// Sources are enabled unless stated otherwise
	Enabled *bool `yaml:"enabled"`
}

// Load reads the list of sources from a YAML file.
func Load(path string) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) ([]model.Source, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode sources file: %w", err)
	}

	sources := make([]model.Source, 0, len(f.Sources))
	for i, e := range f.Sources {
		name, feedURL := strings.TrimSpace(e.Name), strings.TrimSpace(e.FeedURL)
		if name == "" || feedURL == "" {
			return nil, fmt.Errorf("source #%d: name and feed_url are required", i+1)
		}

		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}

		sources = append(sources, model.Source{Name: name, FeedURL: feedURL, Enabled: enabled})
	}

	return sources, nil
}

// Apply stores the sources, leaving already known feed URLs untouched.
// Returns how many sources were added.
func Apply(ctx context.Context, adder SourceAdder, sources []model.Source) (int, error) {
	added := 0

	for _, src := range sources {
		if _, err := adder.Add(ctx, src); err != nil {
			if errors.Is(err, storage.ErrSourceExists) {
				log.Printf("[DEBUG] source %s already exists", src.Name)
				continue
			}
			return added, fmt.Errorf("add source %s: %w", src.Name, err)
		}

		log.Printf("[INFO] added source %s", src.Name)
		added++
	}

	return added, nil
}
