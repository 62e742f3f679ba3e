package stt

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
)

const (
	googleSpeechURL   = "https://speech.googleapis.com/v1"
	googleCloudScope  = "https://www.googleapis.com/auth/cloud-platform"
	googleMinAudioLen = 1000
)

// GoogleProvider implements STT using Google Cloud Speech-to-Text REST API
type GoogleProvider struct {
	projectID string
	apiKey    string
	language  string
	baseURL   string
	client    *resty.Client
	log       zerolog.Logger
}

// GoogleConfig configures the Google provider. KeyData can be either:
//   - An API key (39 characters, typically starts with "AIzaSy")
//   - A file path to a JSON key file
//   - A JSON string containing the service account credentials
//   - Empty, to fall back to application default credentials
type GoogleConfig struct {
	ProjectID string
	KeyData   string
	Language  string
	BaseURL   string
}

func isGoogleAPIKey(keyData string) bool {
	return len(keyData) == 39 && strings.HasPrefix(keyData, "AIzaSy")
}

// NewGoogleProvider creates a new Google STT provider
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig, log zerolog.Logger) (*GoogleProvider, error) {
	log = log.With().Str("component", "stt.google").Logger()
	keyData := strings.TrimSpace(cfg.KeyData)

	p := &GoogleProvider{
		projectID: cfg.ProjectID,
		language:  cfg.Language,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		log:       log,
	}
	if p.baseURL == "" {
		p.baseURL = googleSpeechURL
	}
	if p.language == "" {
		p.language = "en-US"
	}

	if isGoogleAPIKey(keyData) {
		log.Info().Msg("using API key authentication")
		p.apiKey = keyData
		p.client = resty.New().SetTimeout(90 * time.Second)
		return p, nil
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_STT_PROJECT_ID is required when using service account")
	}

	var creds *google.Credentials
	var err error
	switch {
	case keyData == "":
		creds, err = google.FindDefaultCredentials(ctx, googleCloudScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w. Please set GOOGLE_STT_KEY_FILE", err)
		}
	default:
		jsonData := []byte(keyData)
		if !strings.HasPrefix(keyData, "{") {
			log.Info().Str("key_file", keyData).Msg("reading key file")
			jsonData, err = os.ReadFile(keyData)
			if err != nil {
				return nil, fmt.Errorf("failed to read key file '%s': %w", keyData, err)
			}
		}
		creds, err = google.CredentialsFromJSON(ctx, jsonData, googleCloudScope)
		if err != nil {
			return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
		}
	}

	httpClient := oauth2.NewClient(context.Background(), creds.TokenSource)
	httpClient.Timeout = 90 * time.Second
	p.client = resty.NewWithClient(httpClient)
	return p, nil
}

func (p *GoogleProvider) Name() string {
	return "google"
}

type googleRequest struct {
	Config googleConfig `json:"config"`
	Audio  googleAudio  `json:"audio"`
}

type googleConfig struct {
	Encoding                   string                   `json:"encoding,omitempty"`
	SampleRateHertz            int                      `json:"sampleRateHertz,omitempty"`
	LanguageCode               string                   `json:"languageCode"`
	EnableAutomaticPunctuation bool                     `json:"enableAutomaticPunctuation"`
	EnableWordTimeOffsets      bool                     `json:"enableWordTimeOffsets"`
	EnableWordConfidence       bool                     `json:"enableWordConfidence"`
	DiarizationConfig          *googleDiarizationConfig `json:"diarizationConfig,omitempty"`
	Model                      string                   `json:"model,omitempty"`
	UseEnhanced                bool                     `json:"useEnhanced,omitempty"`
}

type googleDiarizationConfig struct {
	EnableSpeakerDiarization bool `json:"enableSpeakerDiarization"`
}

type googleAudio struct {
	Content string `json:"content"` // base64
}

type googleWord struct {
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
	SpeakerTag int     `json:"speakerTag"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string       `json:"transcript"`
			Confidence float64      `json:"confidence"`
			Words      []googleWord `json:"words"`
		} `json:"alternatives"`
		ChannelTag   int    `json:"channelTag"`
		LanguageCode string `json:"languageCode"`
	} `json:"results"`
}

type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *GoogleProvider) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	startTime := time.Now()

	if len(audio.Data) < googleMinAudioLen {
		return nil, apperr.Provider(fmt.Sprintf("Google Speech-to-Text API error: audio too small (%d bytes)", len(audio.Data)), nil)
	}

	encoding, sampleRate := googleAudioConfig(audio.MimeType)
	reqBody := googleRequest{
		Config: googleConfig{
			Encoding:                   encoding,
			SampleRateHertz:            sampleRate,
			LanguageCode:               p.language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
			EnableWordConfidence:       true,
			DiarizationConfig:          &googleDiarizationConfig{EnableSpeakerDiarization: true},
			Model:                      "latest_long",
			UseEnhanced:                true,
		},
		Audio: googleAudio{Content: base64.StdEncoding.EncodeToString(audio.Data)},
	}

	req := p.client.R().SetContext(ctx).SetBody(reqBody)
	var apiURL string
	if p.apiKey != "" {
		req.SetQueryParam("key", p.apiKey)
		apiURL = p.baseURL + "/speech:recognize"
	} else {
		apiURL = fmt.Sprintf("%s/projects/%s:recognize", p.baseURL, p.projectID)
	}

	var sttResp googleResponse
	var apiErr googleErrorBody
	resp, err := req.SetResult(&sttResp).SetError(&apiErr).Post(apiURL)
	if err != nil {
		return nil, apperr.Provider("Google Speech-to-Text API error: request failed", err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		p.log.Warn().Int("status", resp.StatusCode()).Str("body", preview(resp.String())).Msg("google returned error")
		return nil, apperr.Provider("Google Speech-to-Text API error: "+msg, nil)
	}

	if len(sttResp.Results) == 0 {
		return nil, apperr.EmptyResult("No transcript alternatives found")
	}

	var (
		texts      []string
		words      []model.Word
		segments   []model.Segment
		confidence float64
		language   string
	)
	for _, r := range sttResp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if language == "" {
			language = r.LanguageCode
		}

		seg := model.Segment{Text: text, Confidence: alt.Confidence, Channel: r.ChannelTag}
		for i, w := range alt.Words {
			mw := model.Word{
				Word:       w.Word,
				Start:      parseGoogleOffset(w.StartTime),
				End:        parseGoogleOffset(w.EndTime),
				Confidence: w.Confidence,
			}
			if w.SpeakerTag > 0 {
				tag := w.SpeakerTag
				mw.Speaker = &tag
			}
			if i == 0 {
				seg.Start = mw.Start
			}
			seg.End = mw.End
			words = append(words, mw)
		}

		// With diarization enabled the final result repeats every word with speaker tags
		// and carries no transcript. Keep it for words only.
		if text == "" {
			continue
		}
		texts = append(texts, text)
		segments = append(segments, seg)
		confidence += alt.Confidence
	}

	if len(texts) == 0 {
		return nil, apperr.EmptyResult("No transcript alternatives found")
	}
	confidence /= float64(len(texts))

	p.log.Info().
		Float64("confidence", confidence).
		Int("segments", len(segments)).
		Dur("duration", time.Since(startTime)).
		Msg("transcription successful")

	return &Result{
		Text:             strings.Join(texts, " "),
		Confidence:       confidence,
		Words:            dedupeDiarizedWords(words),
		Segments:         segments,
		DetectedLanguage: language,
		Provider:         p.Name(),
		RawResponse:      resp.String(),
	}, nil
}

// dedupeDiarizedWords keeps the speaker-tagged copy of the word list when the
// response repeats it in a trailing diarization result.
func dedupeDiarizedWords(words []model.Word) []model.Word {
	tagged := 0
	for _, w := range words {
		if w.Speaker != nil {
			tagged++
		}
	}
	if tagged == 0 || tagged == len(words) {
		return words
	}
	out := make([]model.Word, 0, tagged)
	for _, w := range words {
		if w.Speaker != nil {
			out = append(out, w)
		}
	}
	return out
}

// parseGoogleOffset converts durations like "1.500s" to seconds
func parseGoogleOffset(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d.Seconds()
}

// googleAudioConfig determines encoding and sample rate from the MIME type.
// Unknown types let the API detect the header itself.
func googleAudioConfig(mimeType string) (string, int) {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "LINEAR16", 0
	case "audio/mpeg", "audio/mp3":
		return "MP3", 44100
	case "audio/ogg":
		return "OGG_OPUS", 48000
	case "audio/webm":
		return "WEBM_OPUS", 48000
	case "audio/flac", "audio/x-flac":
		return "FLAC", 0
	default:
		return "", 0
	}
}
