package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/translation"
	"github.com/vcenk/say-it-translated/internal/utils"
)

type transcribeRequest struct {
	RecordingID string `json:"recordingId"`
}

type translateRequest struct {
	TranscriptID   string `json:"transcriptId"`
	TargetLanguage string `json:"targetLanguage"`
	Text           string `json:"text"`
}

// transcribeAudio handles POST /functions/v1/transcribe-audio.
// Every failure is reported as 500 {error}.
func (h *Handler) transcribeAudio(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FunctionError(c, apperr.InvalidInput("Invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.RecordingID) == "" {
		utils.FunctionError(c, apperr.InvalidInput("Recording ID is required"))
		return
	}
	recordingID, err := uuid.Parse(strings.TrimSpace(req.RecordingID))
	if err != nil {
		utils.FunctionError(c, apperr.NotFound("Recording"))
		return
	}
	if err := h.ownsRecording(c.Request.Context(), ownerID, recordingID); err != nil {
		utils.FunctionError(c, err)
		return
	}

	transcript, err := h.Transcription.Transcribe(c.Request.Context(), recordingID)
	if err != nil {
		utils.FunctionError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success":      true,
		"transcriptId": transcript.ID,
		"text":         transcript.Text,
	})
}

// translateText handles POST /functions/v1/translate-text
func (h *Handler) translateText(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.FunctionError(c, apperr.InvalidInput("Invalid JSON body"))
		return
	}

	// incomplete requests are rejected by the service before any lookup
	complete := strings.TrimSpace(req.TargetLanguage) != "" && strings.TrimSpace(req.Text) != ""
	if id, err := uuid.Parse(strings.TrimSpace(req.TranscriptID)); err == nil && complete {
		if err := h.ownsTranscript(c.Request.Context(), ownerID, id); err != nil {
			utils.FunctionError(c, err)
			return
		}
	}

	tr, err := h.Translation.Translate(c.Request.Context(), translation.Request{
		TranscriptID:   req.TranscriptID,
		TargetLanguage: req.TargetLanguage,
		Text:           req.Text,
	})
	if err != nil {
		utils.FunctionError(c, err)
		return
	}

	c.JSON(200, gin.H{
		"success":        true,
		"translationId":  tr.ID,
		"translatedText": tr.Text,
	})
}

// ownsRecording hides other owners' recordings behind NotFound
func (h *Handler) ownsRecording(ctx context.Context, ownerID, recordingID uuid.UUID) error {
	rec, err := h.Repos.Recordings.GetByID(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.OwnerID != ownerID {
		return apperr.NotFound("Recording")
	}
	return nil
}

func (h *Handler) ownsTranscript(ctx context.Context, ownerID, transcriptID uuid.UUID) error {
	t, err := h.Repos.Transcripts.GetByID(ctx, transcriptID)
	if err != nil {
		return err
	}
	if err := h.ownsRecording(ctx, ownerID, t.RecordingID); err != nil {
		return apperr.NotFound("Transcript")
	}
	return nil
}
