// Package httpjson writes JSON responses and maps domain faults to
// HTTP status codes. Every API handler funnels its errors through
// Fault so the taxonomy-to-status mapping lives in one place.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/caseroom/internal/domain/faults"
	"go.uber.org/zap"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the uniform error payload.
type errorBody struct {
	Error string `json:"error"`
}

// Error writes a JSON error payload with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// Fault maps a domain error onto a status code and writes the error
// payload. Unclassified errors become 500 and are logged; classified
// ones are expected outcomes and are not.
func Fault(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, faults.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, faults.ErrForbidden):
		Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, faults.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, faults.ErrReauthRequired):
		Error(w, http.StatusUnauthorized, "reauthorization required")
	case errors.Is(err, faults.ErrUnauthenticated):
		Error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, faults.ErrStorageFailure):
		Error(w, http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, faults.ErrUpstreamUnavailable):
		Error(w, http.StatusBadGateway, "upstream unavailable")
	default:
		if log != nil {
			log.Error("unhandled error", zap.Error(err))
		}
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
