package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/dto"
	"github.com/lshigami/examflow/internal/model"
	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/service"
	"github.com/lshigami/examflow/internal/session"
)

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUserRequired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrTestNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrActiveSessionExists),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, recording.ErrDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidTest),
		errors.Is(err, service.ErrNoRecording),
		errors.Is(err, session.ErrUnknownPart),
		errors.Is(err, session.ErrNoParts),
		errors.Is(err, model.ErrPayloadKind):
		return http.StatusBadRequest
	case errors.Is(err, recording.ErrDeviceUnavailable):
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

// Fail writes err as an ErrorResponse with the matching status.
func Fail(ctx *gin.Context, message string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg(message)
	} else {
		log.Warn().Err(err).Str("path", ctx.FullPath()).Msg(message)
	}
	ctx.JSON(status, dto.ErrorResponse{Message: message, Details: []string{err.Error()}})
}
