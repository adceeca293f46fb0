package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/runner"
)

type errorResponse struct {
	Error string `json:"error"`
}

var statusByError = []struct {
	err    error
	status int
}{
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrConsultationNotFound, http.StatusNotFound},
	{domain.ErrEmptyInput, http.StatusBadRequest},
	{domain.ErrInvalidOption, http.StatusBadRequest},
	{domain.ErrNotResultTurn, http.StatusBadRequest},
	{runner.ErrInputTooLarge, http.StatusRequestEntityTooLarge},
	{runner.ErrInvalidUTF8, http.StatusBadRequest},
	{domain.ErrBusy, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrNoResult, http.StatusConflict},
	{talisman.ErrJobInFlight, http.StatusConflict},
	{talisman.ErrArtifactDone, http.StatusConflict},
	{talisman.ErrArtifactsDisabled, http.StatusNotImplemented},
	{talisman.ErrSaveDisabled, http.StatusNotImplemented},
	{talisman.ErrClosed, http.StatusGone},
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
