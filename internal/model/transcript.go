package model

import (
	"time"

	"github.com/google/uuid"
)

// Word is a single recognized word with timing in seconds
type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int    `json:"speaker,omitempty"`
}

// Segment is an utterance-level span of the transcript
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker,omitempty"`
	Channel    int     `json:"channel"`
}

// Transcript is the recognized text of a Recording
type Transcript struct {
	ID               uuid.UUID `json:"id"`
	RecordingID      uuid.UUID `json:"recording_id"`
	Text             string    `json:"text"`
	Confidence       float64   `json:"confidence"`
	LanguageDetected string    `json:"language_detected"`
	Words            []Word    `json:"words"`
	Segments         []Segment `json:"segments"`
	CreatedAt        time.Time `json:"created_at"`
}

// Translation is one translated rendition of a Transcript
type Translation struct {
	ID           uuid.UUID `json:"id"`
	TranscriptID uuid.UUID `json:"transcript_id"`
	TargetLang   string    `json:"target_lang"`
	Text         string    `json:"text"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
}
