package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SAZZAD-404/vidpilot/internal/credits"
	"github.com/SAZZAD-404/vidpilot/internal/export"
	"github.com/SAZZAD-404/vidpilot/internal/history"
	"github.com/SAZZAD-404/vidpilot/internal/observe"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	// Upgrade is set on 402 so clients can show the upgrade prompt.
	Upgrade bool `json:"upgrade,omitempty"`
	// CorrelationID matches the X-Correlation-ID header.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, content.ErrInvalidRequest),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, errMissingToken), errors.Is(err, errInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, credits.ErrInsufficient):
		return http.StatusPaymentRequired
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status statusOf picks.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, statusOf(err), err)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := errorBody{
		Error:         err.Error(),
		Upgrade:       status == http.StatusPaymentRequired,
		CorrelationID: observe.CorrelationID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
