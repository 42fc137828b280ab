package image

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/samber/lo"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	htmlAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	maxPageBytes     = 2 << 20
)

// ScrapeError is a failed page download. It never leaves ScrapeBatch.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// ScrapeBatch downloads article pages in chunks of Concurrency and extracts an image from each.
// A chunk is finished before the next one starts. URLs that fail or have no image are absent from the result.
func (r *Resolver) ScrapeBatch(ctx context.Context, urls []string) map[string]string {
	var (
		result = make(map[string]string, len(urls))
		mu     sync.Mutex
	)

	if len(urls) == 0 {
		return result
	}

	for _, chunk := range lo.Chunk(urls, max(r.opts.Concurrency, 1)) {
		if ctx.Err() != nil {
			break
		}

		var wg sync.WaitGroup
		for _, pageURL := range chunk {
			wg.Add(1)

			go func(pageURL string) {
				defer wg.Done()

				img, err := r.scrapeOne(ctx, pageURL)
				if err != nil {
					log.Printf("[DEBUG] %v", err)
					return
				}
				if img == "" {
					return
				}

				mu.Lock()
				result[pageURL] = img
				mu.Unlock()
			}(pageURL)
		}
		wg.Wait()
	}

	return result
}

func (r *Resolver) scrapeOne(ctx context.Context, pageURL string) (string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &ScrapeError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", htmlAccept)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &ScrapeError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &ScrapeError{URL: pageURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", &ScrapeError{URL: pageURL, Err: err}
	}

	return ExtractFromHTML(string(body), pageURL), nil
}
