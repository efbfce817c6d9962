package relayapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nous-sync/nse/internal/logger"
)

// Envelope is the standard relay response wrapper: every non-problem
// response carries a status, a timestamp, and either data or an error.
type Envelope struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Status: "ok", Timestamp: time.Now().UTC(), Data: data})
}

func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Status: "ok", Timestamp: time.Now().UTC(), Data: data})
}
