package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/charhunt/api/internal/game"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse carries every violated rule.
type ValidationErrorResponse struct {
	Errors []FieldError `json:"errors"`
}

// LeaderboardCache is the optional Redis fast path for completed runs.
// A nil cache or a cache error always falls back to the database.
type LeaderboardCache interface {
	RecordTime(ctx context.Context, pseudo string, elapsedMs int64) error
	TopTimes(ctx context.Context, limit int64) ([]game.RankedUser, error)
	PlayerRank(ctx context.Context, pseudo string) (int, error)
	PlayerBestTime(ctx context.Context, pseudo string) (int64, bool, error)
}

type GameHandler struct {
	svc   *game.Service
	cache LeaderboardCache
}

func NewGameHandler(svc *game.Service, cache LeaderboardCache) *GameHandler {
	return &GameHandler{svc: svc, cache: cache}
}

// StartGameResponse carries the fresh session identifier.
type StartGameResponse struct {
	SessionID string `json:"sessionId"`
}

// PlayRequest represents one click guess.
type PlayRequest struct {
	SessionID     string `json:"sessionId"`
	CharacterName string `json:"characterName"`
	PosX          int    `json:"posX"`
	PosY          int    `json:"posY"`
}

// PlayResponse reports the outcome of a guess. Time is only present on
// the guess that completes the session, and a sub-second run still
// reports it as 0.
type PlayResponse struct {
	CharacterFound bool   `json:"characterFound"`
	CharacterName  string `json:"characterName,omitempty"`
	EndOfGame      bool   `json:"endOfGame,omitempty"`
	Time           *int64 `json:"time,omitempty"`
}

// PseudoRequest attaches a display name to a session.
type PseudoRequest struct {
	SessionID string `json:"sessionId"`
	Pseudo    string `json:"pseudo"`
}

// PseudoResponse confirms the attached name.
type PseudoResponse struct {
	Success    bool   `json:"success"`
	PseudoUser string `json:"pseudoUser"`
}

// NoLoginRequest identifies the session to discard.
type NoLoginRequest struct {
	SessionID string `json:"sessionId"`
}

// StartGame creates a new active session
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	session, err := h.svc.StartGame(r.Context())
	if err != nil {
		log.Printf("[Game] Failed to start session: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	json.NewEncoder(w).Encode(StartGameResponse{SessionID: session.SessionID})
}

// Play handles one guess submission
func (h *GameHandler) Play(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.svc.SubmitGuess(r.Context(), req.SessionID, req.CharacterName, req.PosX, req.PosY)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrCharacterNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgCharacterNotFound})
		case errors.Is(err, game.ErrSessionNotFound):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgSessionNotFound})
		default:
			log.Printf("[Game] Guess failed for session %s: %v", req.SessionID, err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		}
		return
	}

	resp := PlayResponse{
		CharacterFound: result.Found,
		CharacterName:  result.CharacterName,
		EndOfGame:      result.EndOfGame,
	}
	if result.EndOfGame {
		h.recordCompletion(r.Context(), req.SessionID, result.ElapsedMs)
		seconds := result.TimeSeconds
		resp.Time = &seconds
	}

	json.NewEncoder(w).Encode(resp)
}

// recordCompletion pushes a finished run into the leaderboard cache
// when the session already carries a pseudo.
func (h *GameHandler) recordCompletion(ctx context.Context, sessionID string, elapsedMs int64) {
	if h.cache == nil {
		return
	}
	session, err := h.svc.Session(ctx, sessionID)
	if err != nil || session.Pseudo == "" {
		return
	}
	if err := h.cache.RecordTime(ctx, session.Pseudo, elapsedMs); err != nil {
		log.Printf("[Game] Failed to cache completion for %s: %v", session.Pseudo, err)
	}
}

// Pseudo attaches a player pseudo to a session
func (h *GameHandler) Pseudo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req PseudoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Pseudo = strings.TrimSpace(req.Pseudo)
	if violations := validatePseudo(req.Pseudo); len(violations) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ValidationErrorResponse{Errors: violations})
		return
	}

	session, err := h.svc.AttachPseudo(r.Context(), req.SessionID, req.Pseudo)
	if err != nil {
		if errors.Is(err, game.ErrSessionNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgSessionNotFound})
			return
		}
		log.Printf("[Game] Failed to attach pseudo to session %s: %v", req.SessionID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	// A completed session that just got its pseudo becomes visible on
	// the cached leaderboard.
	if h.cache != nil && session.Completed() && session.ElapsedMs != nil {
		if err := h.cache.RecordTime(r.Context(), session.Pseudo, *session.ElapsedMs); err != nil {
			log.Printf("[Game] Failed to cache completion for %s: %v", session.Pseudo, err)
		}
	}

	json.NewEncoder(w).Encode(PseudoResponse{Success: true, PseudoUser: session.Pseudo})
}

// NoLogin deletes a session for players who decline to keep a result
func (h *GameHandler) NoLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req NoLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.svc.DeleteSession(r.Context(), req.SessionID); err != nil {
		if errors.Is(err, game.ErrSessionNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgSessionNotFound})
			return
		}
		log.Printf("[Game] Failed to delete session %s: %v", req.SessionID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"sessionDeleted": true})
}
