package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	userAgent    = "NewsFeedIngestor/1.0 (RSS Reader)"
	acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8"
	maxFeedBytes = 10 << 20
)

// RetryPolicy bounds how a feed is fetched: one attempt plus Retries more,
// each attempt limited by Timeout, with BaseDelay * 2^attempt between them.
type RetryPolicy struct {
	Retries   int
	BaseDelay time.Duration
	Timeout   time.Duration
}

// DefaultRetryPolicy matches the values sources have been tuned against.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:   2,
		BaseDelay: time.Second,
		Timeout:   15 * time.Second,
	}
}

// Attempts is the total number of tries including the first one.
func (p RetryPolicy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}

// Backoff is the pause after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

// FetchError is returned once every attempt to download a feed has failed.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher downloads raw feed documents.
type HTTPFetcher struct {
	client *http.Client
	policy RetryPolicy
}

func NewHTTPFetcher(client *http.Client, policy RetryPolicy) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPFetcher{
		client: client,
		policy: policy,
	}
}

// Fetch returns the body of the feed at url. Attempts run one after another;
// a non-2xx answer is retried like a network error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		attempts = f.policy.Attempts()
		lastErr  error
	)

	for attempt := 0; attempt < attempts; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(f.policy.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{URL: url, Attempts: attempt + 1, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return nil, &FetchError{URL: url, Attempts: attempts, Err: lastErr}
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if f.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.policy.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}
