package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/capture"
	"github.com/vcenk/say-it-translated/internal/metrics"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/submission"
	"github.com/vcenk/say-it-translated/internal/utils"
)

type startCaptureRequest struct {
	MimeType string `json:"mime_type"`
}

func captureView(id any, state fmt.Stringer, chunks, size int) gin.H {
	return gin.H{
		"capture_id": id,
		"state":      state.String(),
		"chunks":     chunks,
		"size_bytes": size,
	}
}

// startCapture handles POST /api/v1/captures
func (h *Handler) startCapture(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	var req startCaptureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.AppError(c, apperr.InvalidInput("invalid JSON body"))
			return
		}
	}

	s, err := h.Captures.Start(ownerID, req.MimeType)
	if err != nil {
		utils.AppError(c, err)
		return
	}
	metrics.SetCaptureSessions(h.Captures.Len())

	size, chunks := s.Size()
	utils.Created(c, captureView(s.ID, s.State(), chunks, size))
}

// appendChunk handles POST /api/v1/captures/:capture_id/chunks. The body is the raw chunk.
func (h *Handler) appendChunk(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "capture_id", "Capture session")
	if !ok {
		return
	}

	s, err := h.Captures.Get(id, ownerID)
	if err != nil {
		utils.AppError(c, err)
		return
	}

	ceiling := h.Submissions.CeilingFor(c.Request.Context(), ownerID)
	chunk, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, ceiling))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.AppError(c, apperr.InvalidInput(fmt.Sprintf("chunk exceeds maximum of %d bytes", ceiling)))
			return
		}
		utils.AppError(c, apperr.InvalidInput("could not read chunk"))
		return
	}

	if err := s.AppendWithin(chunk, ceiling); err != nil {
		utils.AppError(c, err)
		return
	}

	size, chunks := s.Size()
	utils.Success(c, captureView(s.ID, s.State(), chunks, size))
}

// stopCapture handles POST /api/v1/captures/:capture_id/stop: the buffered
// audio is submitted once as a recording. A failed submit keeps the session.
func (h *Handler) stopCapture(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "capture_id", "Capture session")
	if !ok {
		return
	}

	var rec *model.Recording
	err := h.Captures.Finish(id, ownerID, func(captured *capture.Capture) error {
		duration := captured.DurationSec
		var err error
		rec, err = h.Submissions.Submit(c.Request.Context(), submission.Asset{
			OwnerID:      ownerID,
			Source:       model.SourceRecording,
			Filename:     captured.Filename,
			DeclaredType: captured.MimeType,
			Size:         int64(len(captured.Data)),
			DurationSec:  &duration,
			Body:         bytes.NewReader(captured.Data),
		})
		return err
	})
	metrics.SetCaptureSessions(h.Captures.Len())
	if err != nil {
		utils.AppError(c, err)
		return
	}
	utils.Created(c, rec)
}

// discardCapture handles DELETE /api/v1/captures/:capture_id
func (h *Handler) discardCapture(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "capture_id", "Capture session")
	if !ok {
		return
	}

	if err := h.Captures.Discard(id, ownerID); err != nil {
		utils.AppError(c, err)
		return
	}
	metrics.SetCaptureSessions(h.Captures.Len())
	utils.Success(c, gin.H{"capture_id": id, "discarded": true})
}
