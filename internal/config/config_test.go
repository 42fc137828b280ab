package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if c.FetchInterval != 10*time.Minute {
		t.Fatalf("unexpected fetch interval: %s", c.FetchInterval)
	}
	if c.FeedTimeout != 15*time.Second || c.FeedRetries != 2 || c.FeedRetryDelay != time.Second {
		t.Fatalf("unexpected feed defaults: %s %d %s", c.FeedTimeout, c.FeedRetries, c.FeedRetryDelay)
	}
	if c.MaxItemsPerFeed != 80 || c.ScrapeLimit != 20 || c.ScrapeConcurrency != 5 {
		t.Fatalf("unexpected limits: %d %d %d", c.MaxItemsPerFeed, c.ScrapeLimit, c.ScrapeConcurrency)
	}
	if c.ScrapeTimeout != 8*time.Second || c.AITimeout != 20*time.Second {
		t.Fatalf("unexpected timeouts: %s %s", c.ScrapeTimeout, c.AITimeout)
	}
	if c.TelegramBotToken != "" {
		t.Fatalf("telegram must be off by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hcl")
	content := `
database_dsn = "postgres://file"
fetch_interval = "5m"
scrape_limit = 7
openai_model = "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("NFI_OPENAI_MODEL", "from-env")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if c.DatabaseDSN != "postgres://file" {
		t.Fatalf("unexpected dsn: %q", c.DatabaseDSN)
	}
	if c.FetchInterval != 5*time.Minute {
		t.Fatalf("unexpected fetch interval: %s", c.FetchInterval)
	}
	if c.ScrapeLimit != 7 {
		t.Fatalf("unexpected scrape limit: %d", c.ScrapeLimit)
	}
	if c.OpenAIModel != "from-env" {
		t.Fatalf("environment should win over the file, got %q", c.OpenAIModel)
	}
}
