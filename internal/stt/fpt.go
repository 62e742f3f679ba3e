package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/apperr"
)

// FPTProvider implements STT using FPT.AI Speech-to-Text API (Vietnamese)
type FPTProvider struct {
	apiKey string
	url    string
	client *resty.Client
	log    zerolog.Logger
}

func NewFPTProvider(apiKey, url string, log zerolog.Logger) *FPTProvider {
	return &FPTProvider{
		apiKey: apiKey,
		url:    url,
		client: resty.New().SetTimeout(90 * time.Second),
		log:    log.With().Str("component", "stt.fpt").Logger(),
	}
}

func (p *FPTProvider) Name() string {
	return "fpt"
}

type fptResponse struct {
	Hypotheses []struct {
		Utterance  string  `json:"utterance"`
		Confidence float64 `json:"confidence"`
	} `json:"hypotheses"`
	ErrorCode int    `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Transcribe sends the raw audio bytes as the request body. FPT returns plain
// hypotheses without word timing, so words and segments stay empty.
func (p *FPTProvider) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("api-key", p.apiKey).
		SetBody(bytes.NewReader(audio.Data)).
		Post(p.url)
	if err != nil {
		return nil, apperr.Provider("FPT.AI API error: request failed", err)
	}

	body := resp.String()
	if resp.IsError() {
		p.log.Warn().Int("status", resp.StatusCode()).Str("body", preview(body)).Msg("fpt returned error")
		return nil, apperr.Provider("FPT.AI API error: "+body, nil)
	}

	var sttResp fptResponse
	if err := json.Unmarshal(resp.Body(), &sttResp); err != nil {
		return nil, apperr.Provider("FPT.AI API error: invalid response", err)
	}
	if sttResp.ErrorCode != 0 {
		return nil, apperr.Provider(fmt.Sprintf("FPT.AI API error %d: %s", sttResp.ErrorCode, sttResp.Message), nil)
	}
	if len(sttResp.Hypotheses) == 0 {
		return nil, apperr.EmptyResult("No transcript alternatives found")
	}

	hyp := sttResp.Hypotheses[0]
	return &Result{
		Text:             strings.TrimSpace(hyp.Utterance),
		Confidence:       hyp.Confidence,
		DetectedLanguage: "vi",
		Provider:         p.Name(),
		RawResponse:      body,
	}, nil
}
