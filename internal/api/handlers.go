package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/auth"
	"github.com/vcenk/say-it-translated/internal/capture"
	"github.com/vcenk/say-it-translated/internal/repository"
	"github.com/vcenk/say-it-translated/internal/storage"
	"github.com/vcenk/say-it-translated/internal/submission"
	"github.com/vcenk/say-it-translated/internal/transcription"
	"github.com/vcenk/say-it-translated/internal/translation"
	"github.com/vcenk/say-it-translated/internal/utils"
)

// Deps are the collaborators the handlers call into
type Deps struct {
	Repos         *repository.Repositories
	Submissions   *submission.Service
	Transcription *transcription.Service
	Translation   *translation.Service
	Captures      *capture.Manager
	Auth          *auth.Validator
	// LocalStore is set only for the local storage backend
	LocalStore *storage.LocalStore
	Log        zerolog.Logger
}

type Handler struct {
	Deps
	log zerolog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d, log: d.Log.With().Str("component", "api").Logger()}
}

// RegisterRoutes mounts every endpoint on r
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(corsMiddleware(), requestLogger(h.log))

	r.GET("/health", h.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.LocalStore != nil {
		r.GET(storage.LocalRoutePrefix+"/*key", h.serveLocalObject)
	}

	requireUser := h.Auth.Middleware()

	functions := r.Group("/functions/v1", requireUser)
	{
		functions.POST("/transcribe-audio", h.transcribeAudio)
		functions.POST("/translate-text", h.translateText)
	}

	v1 := r.Group("/api/v1", requireUser)
	{
		v1.POST("/recordings", h.uploadRecording)
		v1.GET("/recordings", h.listRecordings)
		v1.GET("/recordings/:recording_id", h.getRecording)
		v1.DELETE("/recordings/:recording_id", h.deleteRecording)
		v1.GET("/recordings/:recording_id/export", h.exportTranscript)

		v1.POST("/captures", h.startCapture)
		v1.POST("/captures/:capture_id/chunks", h.appendChunk)
		v1.POST("/captures/:capture_id/stop", h.stopCapture)
		v1.DELETE("/captures/:capture_id", h.discardCapture)
	}
}

// healthCheck returns server health status
func (h *Handler) healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "say-it-translated",
	})
}

func owner(c *gin.Context) (uuid.UUID, bool) {
	id, ok := auth.OwnerID(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}

func pathID(c *gin.Context, param, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		utils.AppError(c, apperr.NotFound(resource))
		return uuid.Nil, false
	}
	return id, true
}

// pagination parses limit/offset the same way for every list endpoint
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
