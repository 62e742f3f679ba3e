package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vcenk/say-it-translated/internal/apperr"
)

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
	})
}

// AppError writes err with the status of its kind. Internal errors keep their message out of the body.
func AppError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	_ = c.Error(err)
	if kind == apperr.KindInternal {
		Error(c, http.StatusInternalServerError, "internal server error")
		return
	}
	Error(c, apperr.HTTPStatus(kind), err.Error())
}

// FunctionError writes the orchestrator failure body: always 500 with the message.
func FunctionError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
