package api

import (
	"net/http"

	"go.uber.org/zap"

	"hotelapi/internal/apperr"
	"hotelapi/pkg/logger"
)

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

const internalErrorMessage = "Error interno del servidor"

func WriteError(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	WriteJSON(w, status, ErrorEnvelope{Success: false, Error: message, Code: code})
}

// WriteErr maps domain errors to HTTP responses. Unknown errors are logged
// and reported as a generic 500.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := apperr.As(err); ok {
		WriteError(w, statusFor(e.Kind), e.Code, e.Message)
		return
	}
	logger.FromContext(r.Context()).Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", internalErrorMessage)
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
