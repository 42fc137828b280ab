package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/kovalyov-valentin/news-feed-ingestor/internal/model"
)

// MaxInputBytes bounds the article text sent to the model.
const MaxInputBytes = 10000

// DefaultPrompt asks for the JSON shape parseAnswer expects.
const DefaultPrompt = `You are a specialized news summarizer.
Analyze the text and generate:
1. "shortSummary": a single compelling sentence (max 150 chars) that captures the main hook.
2. "extendedSummary": exactly two distinct, insightful points with context and details, joined with "` + model.SummaryPointsDelimiter + `".
Return ONLY a raw JSON object with keys "shortSummary" and "extendedSummary". Do not use Markdown formatting.`

var (
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled = errors.New("openai summarizer is disabled")
	// ErrMalformedResponse is returned when the model answer is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed summarizer response")
)

// OpenAISummarizer asks an OpenAI-compatible chat completion API for both summaries at once.
type OpenAISummarizer struct {
	client  *openai.Client
	model   string
	prompt  string
	enabled bool
}

// NewOpenAISummarizer builds a client. An empty baseURL means the public OpenAI API,
// empty model and prompt fall back to defaults.
func NewOpenAISummarizer(apiKey, baseURL, model, prompt string) *OpenAISummarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}

	log.Printf("[INFO] openai summarizer enabled: %v", apiKey != "")

	return &OpenAISummarizer{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		prompt:  prompt,
		enabled: apiKey != "",
	}
}

func (s *OpenAISummarizer) Enabled() bool {
	return s.enabled
}

// SummarizeJSON returns the model's short and extended summaries for text.
func (s *OpenAISummarizer) SummarizeJSON(ctx context.Context, text string) (model.Summary, error) {
	if !s.enabled {
		return model.Summary{}, ErrDisabled
	}

	request := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: s.prompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: truncateBytes(text, MaxInputBytes),
			},
		},
		MaxTokens:   512,
		Temperature: 0.3,
		TopP:        1,
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return model.Summary{}, fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return model.Summary{}, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	return parseAnswer(resp.Choices[0].Message.Content)
}

func parseAnswer(raw string) (model.Summary, error) {
	answer := stripCodeFence(raw)

	var result model.Summary
	if err := json.Unmarshal([]byte(answer), &result); err != nil {
		return model.Summary{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result.Short = strings.TrimSpace(result.Short)
	result.Extended = strings.TrimSpace(result.Extended)
	if result.Short == "" || result.Extended == "" {
		return model.Summary{}, fmt.Errorf("%w: empty field", ErrMalformedResponse)
	}

	return result, nil
}

// Models like to wrap JSON in ```json fences even when told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// truncateBytes cuts s to at most limit bytes without splitting a rune.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}
