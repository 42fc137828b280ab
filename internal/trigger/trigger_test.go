package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

type fakeIngester struct {
	calls   int
	reports []model.IngestReport
	err     error
}

func (f *fakeIngester) IngestAll(context.Context) ([]model.IngestReport, error) {
	f.calls++
	return f.reports, f.err
}

type fakeCache struct {
	tags []string
	err  error
}

func (f *fakeCache) Invalidate(_ context.Context, tag string) error {
	f.tags = append(f.tags, tag)
	return f.err
}

func TestIngestEndpoint(t *testing.T) {
	ingester := &fakeIngester{reports: []model.IngestReport{{Source: "Daily", NewArticles: 3}}}
	cache := &fakeCache{}
	handler := NewServer(ingester, cache, "s3cret").Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest?secret=s3cret", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		OK     bool                 `json:"ok"`
		Report []model.IngestReport `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.OK || len(body.Report) != 1 || body.Report[0].NewArticles != 3 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if len(cache.tags) != 1 || cache.tags[0] != ArticlesTag {
		t.Fatalf("expected articles tag invalidated, got %v", cache.tags)
	}
}

func TestIngestEndpointRejectsWrongSecret(t *testing.T) {
	ingester := &fakeIngester{}
	handler := NewServer(ingester, &fakeCache{}, "s3cret").Routes()

	for _, target := range []string{"/api/ingest", "/api/ingest?secret=nope"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, rec.Code)
		}
	}
	if ingester.calls != 0 {
		t.Fatalf("ingestion must not run without the secret")
	}
}

func TestIngestEndpointOpenWithoutSecret(t *testing.T) {
	handler := NewServer(&fakeIngester{}, &fakeCache{}, "").Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "{\"ok\":true,\"report\":[]}\n" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestIngestEndpointFailure(t *testing.T) {
	cache := &fakeCache{}
	handler := NewServer(&fakeIngester{err: errors.New("database is down")}, cache, "").Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(cache.tags) != 0 {
		t.Fatalf("cache must not be invalidated after a failed run")
	}
}

func TestIngestEndpointOnlyPost(t *testing.T) {
	handler := NewServer(&fakeIngester{}, &fakeCache{}, "").Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRevalidateEndpoint(t *testing.T) {
	cache := &fakeCache{}
	handler := NewServer(&fakeIngester{}, cache, "").Routes()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/api/revalidate", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", method, rec.Code)
		}
	}
	if len(cache.tags) != 2 {
		t.Fatalf("expected two invalidations, got %v", cache.tags)
	}

	cache.err = errors.New("site unreachable")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/revalidate", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on invalidation failure, got %d", rec.Code)
	}
}

func TestWebhookInvalidator(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	inv := NewWebhookInvalidator(server.URL+"/api/revalidate", "s3cret", server.Client())
	if err := inv.Invalidate(context.Background(), ArticlesTag); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}

	if got.Method != http.MethodPost {
		t.Fatalf("expected POST, got %s", got.Method)
	}
	if got.URL.Query().Get("tag") != ArticlesTag || got.URL.Query().Get("secret") != "s3cret" {
		t.Fatalf("unexpected query: %s", got.URL.RawQuery)
	}
}

func TestWebhookInvalidatorErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if err := NewWebhookInvalidator(server.URL, "", server.Client()).Invalidate(context.Background(), ArticlesTag); err == nil {
		t.Fatalf("expected error on non-2xx answer")
	}
	if err := NewWebhookInvalidator("", "", nil).Invalidate(context.Background(), ArticlesTag); err != nil {
		t.Fatalf("expected no-op without url, got %v", err)
	}
}
