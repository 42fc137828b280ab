package summary

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

// AIClient is an external summarizer answering with both summaries.
type AIClient interface {
	SummarizeJSON(ctx context.Context, text string) (model.Summary, error)
}

const (
	breakerFailures = 5
	breakerOpenFor  = time.Minute
)

// Summarizer prefers the AI client and falls back to the local summarizer
// whenever the client is missing, fails or is cut off by the circuit breaker.
type Summarizer struct {
	ai      AIClient
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewSummarizer wraps ai, which may be nil. Every AI call is limited by timeout.
func NewSummarizer(ai AIClient, timeout time.Duration) *Summarizer {
	return &Summarizer{
		ai:      ai,
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "ai-summarizer",
			Timeout: breakerOpenFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("[WARN] %s circuit breaker: %s -> %s", name, from, to)
			},
		}),
	}
}

// Summarize never fails: an empty text gives an empty summary.
func (s *Summarizer) Summarize(ctx context.Context, text string) model.Summary {
	if s.ai == nil || collapseSpaces(text) == "" {
		return Fallback(text)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return s.ai.SummarizeJSON(callCtx, text)
	})

	switch {
	case err == nil:
		return result.(model.Summary)
	case errors.Is(err, ErrDisabled):
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		log.Printf("[DEBUG] ai summarizer unavailable, using fallback: %v", err)
	default:
		log.Printf("[WARN] ai summarizer failed, using fallback: %v", err)
	}

	return Fallback(text)
}
