// Package ai calls the hosted language model used for translation.
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/vcenk/say-it-translated/internal/apperr"
)

const (
	translationMaxTokens   = 4000
	translationTemperature = 0.3
)

// Translator renders text into another language
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	Model() string
}

// OpenAITranslator implements Translator with the chat completions API
type OpenAITranslator struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAITranslator creates a translator. baseURL overrides the API endpoint
// when set (proxies, compatible servers, tests).
func NewOpenAITranslator(apiKey, baseURL, model string, log zerolog.Logger) *OpenAITranslator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITranslator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log.With().Str("component", "ai.translator").Logger(),
	}
}

func (t *OpenAITranslator) Model() string {
	return t.model
}

// Translate returns the first completion choice. Upstream failures are
// ProviderError "OpenAI API error: <message>", a missing or empty choice is
// EmptyResult.
func (t *OpenAITranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: BuildTranslationPrompt(targetLanguage),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens:   translationMaxTokens,
		Temperature: translationTemperature,
	}

	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		msg := err.Error()
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
			if msg == "" {
				msg = "Unknown error"
			}
		}
		t.log.Warn().Err(err).Str("target_language", targetLanguage).Msg("openai request failed")
		return "", apperr.Provider("OpenAI API error: "+msg, nil)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperr.EmptyResult("No translation received from OpenAI")
	}

	t.log.Info().
		Str("target_language", targetLanguage).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("duration", time.Since(startTime)).
		Msg("translation received")

	return resp.Choices[0].Message.Content, nil
}
