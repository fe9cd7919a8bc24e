package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/charhunt/api/internal/janitor"
)

type SessionsHandler struct {
	janitor *janitor.Janitor
}

func NewSessionsHandler(j *janitor.Janitor) *SessionsHandler {
	return &SessionsHandler{janitor: j}
}

// Cleanup runs one inactive-session sweep on demand
func (h *SessionsHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	deleted, err := h.janitor.Sweep(r.Context())
	if err != nil {
		log.Printf("[Sessions] Manual sweep failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	json.NewEncoder(w).Encode(map[string]int64{"sessionsDeleted": deleted})
}
