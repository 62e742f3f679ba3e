package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
	"github.com/vcenk/say-it-translated/internal/submission"
	"github.com/vcenk/say-it-translated/internal/transcription"
	"github.com/vcenk/say-it-translated/internal/utils"
)

// multipart overhead allowed on top of the owner's ceiling
const formOverhead = 1 << 20

// formFile accepts the field names used by the web and mobile clients
func formFile(c *gin.Context) (*multipart.FileHeader, error) {
	var err error
	for _, field := range []string{"audio_file", "audio", "file"} {
		var file *multipart.FileHeader
		if file, err = c.FormFile(field); err == nil {
			return file, nil
		}
	}
	return nil, err
}

// uploadRecording handles POST /api/v1/recordings
func (h *Handler) uploadRecording(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	ceiling := h.Submissions.CeilingFor(c.Request.Context(), ownerID)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ceiling+formOverhead)

	file, err := formFile(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.AppError(c, apperr.InvalidInput(fmt.Sprintf("file exceeds maximum of %d bytes", ceiling)))
			return
		}
		utils.AppError(c, apperr.InvalidInput("audio_file is required"))
		return
	}

	f, err := file.Open()
	if err != nil {
		utils.AppError(c, apperr.InvalidInput("could not read uploaded file"))
		return
	}
	defer f.Close()

	asset := submission.Asset{
		OwnerID:      ownerID,
		Source:       model.SourceUpload,
		Filename:     file.Filename,
		DeclaredType: file.Header.Get("Content-Type"),
		Size:         file.Size,
		Body:         f,
	}
	if d, err := strconv.ParseFloat(c.PostForm("duration"), 64); err == nil && d > 0 {
		asset.DurationSec = &d
	}

	rec, err := h.Submissions.Submit(c.Request.Context(), asset)
	if err != nil {
		utils.AppError(c, err)
		return
	}
	utils.Created(c, rec)
}

// listRecordings handles GET /api/v1/recordings
func (h *Handler) listRecordings(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	recs, err := h.Repos.Recordings.ListByOwner(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		utils.AppError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"items":  recs,
		"limit":  limit,
		"offset": offset,
	})
}

// getRecording handles GET /api/v1/recordings/:recording_id
func (h *Handler) getRecording(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "recording_id", "Recording")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	rec, err := h.Repos.Recordings.GetByID(ctx, id)
	if err != nil {
		utils.AppError(c, err)
		return
	}
	if rec.OwnerID != ownerID {
		utils.AppError(c, apperr.NotFound("Recording"))
		return
	}

	resp := gin.H{"recording": rec, "transcript": nil, "translations": []model.Translation{}}
	transcript, err := h.Repos.Transcripts.GetByRecording(ctx, rec.ID)
	switch {
	case apperr.Is(err, apperr.KindNotFound):
	case err != nil:
		utils.AppError(c, err)
		return
	default:
		translations, err := h.Translation.History(ctx, transcript.ID)
		if err != nil {
			utils.AppError(c, err)
			return
		}
		resp["transcript"] = transcript
		resp["translations"] = translations
	}
	utils.Success(c, resp)
}

// deleteRecording handles DELETE /api/v1/recordings/:recording_id
func (h *Handler) deleteRecording(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "recording_id", "Recording")
	if !ok {
		return
	}

	if err := h.Submissions.Remove(c.Request.Context(), ownerID, id); err != nil {
		utils.AppError(c, err)
		return
	}
	utils.Success(c, gin.H{"recording_id": id, "deleted": true})
}

// exportTranscript handles GET /api/v1/recordings/:recording_id/export?format=txt|srt|vtt
func (h *Handler) exportTranscript(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "recording_id", "Recording")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := h.ownsRecording(ctx, ownerID, id); err != nil {
		utils.AppError(c, err)
		return
	}
	transcript, err := h.Repos.Transcripts.GetByRecording(ctx, id)
	if err != nil {
		utils.AppError(c, err)
		return
	}

	format := strings.ToLower(c.Query("format"))
	if format == "" {
		format = transcription.FormatText
	}
	body, err := transcription.Export(transcript, format)
	if err != nil {
		utils.AppError(c, err)
		return
	}

	filename := fmt.Sprintf("transcript-%s.%s", id, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, transcription.ContentType(format), []byte(body))
}
