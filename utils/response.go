package utils

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Summary interface{} `json:"summary,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

type Meta struct {
	Page         int   `json:"page"`
	Limit        int   `json:"limit"`
	TotalRecords int64 `json:"totalRecords"`
	TotalPages   int64 `json:"totalPages"`
}

func NewMeta(page, limit int, totalRecords int64) *Meta {
	var totalPages int64
	if limit > 0 {
		totalPages = int64(math.Ceil(float64(totalRecords) / float64(limit)))
	}
	return &Meta{Page: page, Limit: limit, TotalRecords: totalRecords, TotalPages: totalPages}
}

func Success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func Page(c *gin.Context, message string, data interface{}, meta *Meta, summary interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data, Meta: meta, Summary: summary})
}

// Fail writes err as a sanitized error response. Internal errors are logged
// with their cause and answered with a generic message.
func Fail(c *gin.Context, err error) {
	appErr := describe(c, err)
	c.JSON(appErr.Status(), Response{Success: false, Message: appErr.Message, Error: appErr.Code})
}

// Abort is Fail for middleware: it also stops the handler chain.
func Abort(c *gin.Context, err error) {
	appErr := describe(c, err)
	c.AbortWithStatusJSON(appErr.Status(), Response{Success: false, Message: appErr.Message, Error: appErr.Code})
}

func describe(c *gin.Context, err error) *AppError {
	appErr := AsAppError(err)
	if appErr.Kind == KindInternal {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		_ = c.Error(err)
	}
	return appErr
}
