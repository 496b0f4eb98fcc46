package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/notes"
)

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, notes.ErrWrongPassword):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidParameters), errors.Is(err, domain.ErrAcquisition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStorageQuota):
		return http.StatusInsufficientStorage
	case errors.Is(err, domain.ErrCameraUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and hides their detail from clients.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = domain.UserMessage(err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
