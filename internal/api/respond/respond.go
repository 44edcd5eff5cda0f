// Package respond centralizes JSON response writing and the mapping from
// domain errors to HTTP status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pupperhq/pupper-server/internal/model"
)

// ErrorResponse is the error body shape the front end consumes.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// WriteError writes a standardized error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 response. The message is fixed so backing
// store details never leak to clients.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

// WriteDomainError maps a service error to its HTTP status. Validation,
// not-found, forbidden and conflict errors carry their message through;
// anything else is logged and genericized to 500.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		WriteError(w, http.StatusBadRequest, stripSentinel(err, model.ErrValidation))
	case errors.Is(err, model.ErrNotFound):
		WriteError(w, http.StatusNotFound, stripSentinel(err, model.ErrNotFound))
	case errors.Is(err, model.ErrForbidden):
		WriteError(w, http.StatusForbidden, stripSentinel(err, model.ErrForbidden))
	case errors.Is(err, model.ErrConflict):
		WriteError(w, http.StatusConflict, stripSentinel(err, model.ErrConflict))
	default:
		log.Error().Err(err).Msg("request failed")
		WriteInternalError(w)
	}
}

// stripSentinel removes the sentinel prefix from a wrapped error so clients
// see only the human-readable part.
func stripSentinel(err error, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}
