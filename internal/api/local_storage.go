package api

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vcenk/say-it-translated/internal/storage"
	"github.com/vcenk/say-it-translated/internal/utils"
)

// serveLocalObject streams an object written by the local storage backend.
// Access is granted by the signature in the URL, not by the bearer token.
func (h *Handler) serveLocalObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	f, err := h.LocalStore.Open(key, c.Query("expires"), c.Query("signature"))
	switch {
	case errors.Is(err, storage.ErrInvalidSignature):
		utils.Error(c, http.StatusForbidden, "invalid or expired signature")
		return
	case errors.Is(err, os.ErrNotExist):
		utils.Error(c, http.StatusNotFound, "object not found")
		return
	case err != nil:
		h.log.Error().Err(err).Str("key", key).Msg("failed to open local object")
		utils.Error(c, http.StatusBadRequest, "invalid object key")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to read object")
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", f, nil)
}
