package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

type fakeProvider struct {
	articles []model.Article
	posted   []int64
	since    time.Time
}

func (p *fakeProvider) AllNotPosted(_ context.Context, since time.Time, limit uint64) ([]model.Article, error) {
	p.since = since
	if uint64(len(p.articles)) > limit {
		return p.articles[:limit], nil
	}
	return p.articles, nil
}

func (p *fakeProvider) MarkPosted(_ context.Context, id int64) error {
	p.posted = append(p.posted, id)
	return nil
}

type fakeSender struct {
	sent      []tgbotapi.Chattable
	failPhoto bool
	failAll   bool
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)

	if s.failAll {
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	if _, ok := c.(tgbotapi.PhotoConfig); ok && s.failPhoto {
		return tgbotapi.Message{}, errors.New("wrong file identifier")
	}
	return tgbotapi.Message{}, nil
}

func article() model.Article {
	return model.Article{
		ID:              42,
		Title:           "Go 1.23 released!",
		ShortSummary:    "Iterators land in the language.",
		ExtendedSummary: "Range over func is stable.|||Telemetry is opt-in.",
		URL:             "https://go.dev/blog/go1.23",
	}
}

func TestFormatArticle(t *testing.T) {
	got := formatArticle(article())

	for _, want := range []string{
		"*Go 1\\.23 released\\!*",
		"Iterators land in the language\\.",
		"\n• Range over func is stable\\.",
		"\n• Telemetry is opt\\-in\\.",
		"https://go\\.dev/blog/go1\\.23",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "|||") || strings.Contains(got, "\\|\\|\\|") {
		t.Fatalf("delimiter leaked into the message: %q", got)
	}
}

func TestSelectAndSendArticleText(t *testing.T) {
	provider := &fakeProvider{articles: []model.Article{article()}}
	sender := &fakeSender{}

	n := New(provider, sender, time.Minute, time.Hour, -100)
	if err := n.SelectAndSendArticle(context.Background()); err != nil {
		t.Fatalf("SelectAndSendArticle error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("expected a text message, got %T", sender.sent[0])
	}
	if msg.ParseMode != tgbotapi.ModeMarkdownV2 || msg.ChatID != -100 {
		t.Fatalf("unexpected message config: %+v", msg)
	}
	if len(provider.posted) != 1 || provider.posted[0] != 42 {
		t.Fatalf("expected article to be marked posted, got %v", provider.posted)
	}
	if time.Since(provider.since) < 59*time.Minute {
		t.Fatalf("lookup window not applied: %s", provider.since)
	}
}

func TestSelectAndSendArticlePhoto(t *testing.T) {
	a := article()
	a.Image = "https://go.dev/images/gopher.png"

	provider := &fakeProvider{articles: []model.Article{a}}
	sender := &fakeSender{}

	if err := New(provider, sender, time.Minute, time.Hour, -100).SelectAndSendArticle(context.Background()); err != nil {
		t.Fatalf("SelectAndSendArticle error: %v", err)
	}

	photo, ok := sender.sent[0].(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("expected a photo, got %T", sender.sent[0])
	}
	if photo.Caption == "" || photo.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Fatalf("unexpected photo config: %+v", photo)
	}
}

func TestSelectAndSendArticlePhotoFallsBackToText(t *testing.T) {
	a := article()
	a.Image = "https://go.dev/images/gopher.png"

	provider := &fakeProvider{articles: []model.Article{a}}
	sender := &fakeSender{failPhoto: true}

	if err := New(provider, sender, time.Minute, time.Hour, -100).SelectAndSendArticle(context.Background()); err != nil {
		t.Fatalf("SelectAndSendArticle error: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected photo then text, got %d sends", len(sender.sent))
	}
	if _, ok := sender.sent[1].(tgbotapi.MessageConfig); !ok {
		t.Fatalf("expected text fallback, got %T", sender.sent[1])
	}
}

func TestSelectAndSendArticleFailureKeepsArticle(t *testing.T) {
	provider := &fakeProvider{articles: []model.Article{article()}}
	sender := &fakeSender{failAll: true}

	if err := New(provider, sender, time.Minute, time.Hour, -100).SelectAndSendArticle(context.Background()); err == nil {
		t.Fatalf("expected send error")
	}
	if len(provider.posted) != 0 {
		t.Fatalf("article must stay unposted after a failed send")
	}
}

func TestSelectAndSendArticleNothingToPost(t *testing.T) {
	sender := &fakeSender{}
	if err := New(&fakeProvider{}, sender, time.Minute, time.Hour, -100).SelectAndSendArticle(context.Background()); err != nil {
		t.Fatalf("SelectAndSendArticle error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestNewClampsSendInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		n := New(&fakeProvider{}, &fakeSender{}, interval, time.Hour, -100)
		if n.sendInterval != DefaultSendInterval {
			t.Fatalf("interval %s: expected %s, got %s", interval, DefaultSendInterval, n.sendInterval)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := n.Start(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
}
