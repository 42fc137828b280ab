package image

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

func TestResolvePriority(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, DefaultOptions())
	content := `<meta property="og:image" content="https://x.test/og.jpg">`

	cases := []struct {
		name string
		item model.Item
		want string
	}{
		{
			name: "enclosure wins over html",
			item: model.Item{EnclosureURL: "https://x.test/enc.jpg", Content: content},
			want: "https://x.test/enc.jpg",
		},
		{
			name: "invalid enclosure falls through to item image",
			item: model.Item{EnclosureURL: "https://x.test/enc.svg", ImageURL: "https://x.test/item.jpg", Content: content},
			want: "https://x.test/item.jpg",
		},
		{
			name: "content html",
			item: model.Item{Content: content, Summary: `<img src="https://x.test/summary.jpg">`},
			want: "https://x.test/og.jpg",
		},
		{
			name: "summary html when content has none",
			item: model.Item{Content: "<p>text</p>", Summary: `<img src="/a.jpg">`, Link: "https://news.test/post"},
			want: "https://news.test/a.jpg",
		},
		{
			name: "nothing",
			item: model.Item{Summary: "plain"},
			want: "",
		},
	}

	for _, tc := range cases {
		if got := r.Resolve(tc.item); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestFillScrapesOnlyLimitedNumberOfArticles(t *testing.T) {
	var (
		hits     int32
		inFlight int32
		peak     int32
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		current := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)

		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}

		if r.Header.Get("User-Agent") != browserUserAgent {
			t.Errorf("expected browser user agent, got %q", r.Header.Get("User-Agent"))
		}

		time.Sleep(5 * time.Millisecond)
		fmt.Fprintf(w, `<meta property="og:image" content="/img%s.jpg">`, r.URL.Path)
	}))
	defer server.Close()

	articles := make([]*model.Article, 0, 26)
	articles = append(articles, &model.Article{URL: server.URL + "/has-image", Image: "https://x.test/kept.jpg"})
	for i := 0; i < 25; i++ {
		articles = append(articles, &model.Article{URL: fmt.Sprintf("%s/a/%d", server.URL, i)})
	}

	r := NewResolver(server.Client(), DefaultOptions())
	r.Fill(context.Background(), articles)

	if got := atomic.LoadInt32(&hits); got != 20 {
		t.Fatalf("expected exactly 20 scrapes, got %d", got)
	}
	if got := atomic.LoadInt32(&peak); got > 5 {
		t.Fatalf("expected at most 5 concurrent scrapes, got %d", got)
	}

	if articles[0].Image != "https://x.test/kept.jpg" {
		t.Fatalf("existing image overwritten: %q", articles[0].Image)
	}
	for i, a := range articles[1:] {
		if i < 20 {
			want := fmt.Sprintf("%s/img/a/%d.jpg", server.URL, i)
			if a.Image != want {
				t.Fatalf("article %d: expected %q, got %q", i, want, a.Image)
			}
			continue
		}
		if a.Image != "" {
			t.Fatalf("article %d beyond the limit should not be scraped, got %q", i, a.Image)
		}
	}
}

func TestScrapeBatchSkipsFailures(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/ok"):
			fmt.Fprint(w, `<img src="https://x.test/ok.jpg">`)
		case strings.HasPrefix(r.URL.Path, "/slow"):
			select {
			case <-r.Context().Done():
			case <-release:
			}
		case strings.HasPrefix(r.URL.Path, "/noimage"):
			fmt.Fprint(w, `<p>nothing here</p>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	defer close(release)

	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond
	r := NewResolver(server.Client(), opts)

	urls := []string{server.URL + "/ok", server.URL + "/slow", server.URL + "/missing", server.URL + "/noimage"}
	got := r.ScrapeBatch(context.Background(), urls)

	if len(got) != 1 {
		t.Fatalf("expected a single result, got %v", got)
	}
	if got[server.URL+"/ok"] != "https://x.test/ok.jpg" {
		t.Fatalf("unexpected result: %v", got)
	}
}
