package stt

import "github.com/vcenk/say-it-translated/internal/model"

// Result represents the result of a speech-to-text transcription
type Result struct {
	Text             string
	Confidence       float64 // 0.0-1.0, zero when the provider does not report one
	Words            []model.Word
	Segments         []model.Segment
	DetectedLanguage string // empty when the provider does not detect language
	RequestID        string // provider-side request id, may be empty
	Provider         string
	RawResponse      string
}
