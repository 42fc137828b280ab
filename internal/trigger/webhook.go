package trigger

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// WebhookInvalidator asks the downstream site to revalidate a cache tag over HTTP.
// Without a URL it does nothing.
type WebhookInvalidator struct {
	endpoint string
	secret   string
	client   *http.Client
}

func NewWebhookInvalidator(endpoint, secret string, client *http.Client) *WebhookInvalidator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &WebhookInvalidator{
		endpoint: endpoint,
		secret:   secret,
		client:   client,
	}
}

func (w *WebhookInvalidator) Invalidate(ctx context.Context, tag string) error {
	if w.endpoint == "" {
		log.Printf("[DEBUG] no revalidate url configured, skipping %q", tag)
		return nil
	}

	u, err := url.Parse(w.endpoint)
	if err != nil {
		return fmt.Errorf("parse revalidate url: %w", err)
	}

	q := u.Query()
	q.Set("tag", tag)
	if w.secret != "" {
		q.Set("secret", w.secret)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build revalidate request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate %q: %w", tag, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("revalidate %q: unexpected status %s", tag, resp.Status)
	}

	return nil
}
