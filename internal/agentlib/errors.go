// internal/agentlib/errors.go
package agentlib

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kathir-ks/a2a-ledger/internal/repository"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

// ErrBusy is returned when a caller gave up waiting for an admission slot.
var ErrBusy = errors.New("agent busy")

// statusForError maps an error to the HTTP status it is reported with.
func statusForError(err error) int {
	switch {
	case errors.Is(err, a2a.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONResponse(w, status, a2a.ErrorResponse{Error: msg})
}

// writeJSONResponse encodes the response and writes it to the ResponseWriter.
func writeJSONResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("Agent: Failed to write JSON response: %v", err)
	}
}
