package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
)

// DeepgramProvider implements STT using the Deepgram pre-recorded API
type DeepgramProvider struct {
	apiKey string
	url    string
	model  string
	client *resty.Client
	log    zerolog.Logger
}

func NewDeepgramProvider(apiKey, url, model string, log zerolog.Logger) *DeepgramProvider {
	return &DeepgramProvider{
		apiKey: apiKey,
		url:    url,
		model:  model,
		client: resty.New().SetTimeout(5 * time.Minute),
		log:    log.With().Str("component", "stt.deepgram").Logger(),
	}
}

func (p *DeepgramProvider) Name() string {
	return "deepgram"
}

type deepgramWord struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int    `json:"speaker"`
}

type deepgramResponse struct {
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string         `json:"transcript"`
				Confidence float64        `json:"confidence"`
				Words      []deepgramWord `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Confidence float64 `json:"confidence"`
			Channel    int     `json:"channel"`
			Transcript string  `json:"transcript"`
			Speaker    *int    `json:"speaker"`
		} `json:"utterances"`
	} `json:"results"`
}

// Transcribe posts the audio as multipart field "audio" with smart formatting,
// punctuation, diarization and utterance segmentation enabled.
func (p *DeepgramProvider) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	startTime := time.Now()

	filename := audio.Filename
	if filename == "" {
		filename = "audio"
	}
	mimeType := audio.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+p.apiKey).
		SetQueryParams(map[string]string{
			"model":        p.model,
			"smart_format": "true",
			"punctuate":    "true",
			"diarize":      "true",
			"utterances":   "true",
		}).
		SetMultipartField("audio", filename, mimeType, bytes.NewReader(audio.Data)).
		Post(p.url)
	if err != nil {
		return nil, apperr.Provider("Deepgram API error: request failed", err)
	}

	body := resp.String()
	if resp.IsError() {
		p.log.Warn().Int("status", resp.StatusCode()).Str("body", preview(body)).Msg("deepgram returned error")
		return nil, apperr.Provider("Deepgram API error: "+body, nil)
	}

	var dg deepgramResponse
	if err := json.Unmarshal(resp.Body(), &dg); err != nil {
		return nil, apperr.Provider("Deepgram API error: invalid response", err)
	}

	if len(dg.Results.Channels) == 0 || len(dg.Results.Channels[0].Alternatives) == 0 {
		return nil, apperr.EmptyResult("No transcript alternatives found")
	}
	channel := dg.Results.Channels[0]
	alt := channel.Alternatives[0]

	words := make([]model.Word, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, model.Word{
			Word:           w.Word,
			PunctuatedWord: w.PunctuatedWord,
			Start:          w.Start,
			End:            w.End,
			Confidence:     w.Confidence,
			Speaker:        w.Speaker,
		})
	}

	segments := make([]model.Segment, 0, len(dg.Results.Utterances))
	for _, u := range dg.Results.Utterances {
		segments = append(segments, model.Segment{
			Start:      u.Start,
			End:        u.End,
			Text:       strings.TrimSpace(u.Transcript),
			Confidence: u.Confidence,
			Speaker:    u.Speaker,
			Channel:    u.Channel,
		})
	}

	requestID := resp.Header().Get("dg-request-id")
	if requestID == "" {
		requestID = dg.Metadata.RequestID
	}

	p.log.Info().
		Str("request_id", requestID).
		Float64("confidence", alt.Confidence).
		Int("words", len(words)).
		Dur("duration", time.Since(startTime)).
		Msg("transcription successful")

	return &Result{
		Text:             alt.Transcript,
		Confidence:       alt.Confidence,
		Words:            words,
		Segments:         segments,
		DetectedLanguage: channel.DetectedLanguage,
		RequestID:        requestID,
		Provider:         p.Name(),
		RawResponse:      body,
	}, nil
}

// preview truncates provider bodies for log lines
func preview(s string) string {
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
