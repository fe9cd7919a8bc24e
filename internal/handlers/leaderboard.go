package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/charhunt/api/internal/game"
)

type LeaderboardHandler struct {
	svc   *game.Service
	cache LeaderboardCache
}

func NewLeaderboardHandler(svc *game.Service, cache LeaderboardCache) *LeaderboardHandler {
	return &LeaderboardHandler{svc: svc, cache: cache}
}

// LeaderboardRequest identifies the completed session asking for the board.
type LeaderboardRequest struct {
	SessionID string `json:"sessionId"`
}

// LeaderboardResponse is the ranked board plus the requester's own
// placement. Rank is 0 when the session has no pseudo on the board.
type LeaderboardResponse struct {
	RankedUsers       []game.RankedUser `json:"rankedUsers"`
	Rank              int               `json:"rank"`
	PlayerElapsedTime *int64            `json:"playerElapsedTime,omitempty"`
}

// GetLeaderboard serves the best-time ranking for a completed session
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req LeaderboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	ranked, session, err := h.svc.Leaderboard(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, game.ErrInvalidSession) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgInvalidSession})
			return
		}
		log.Printf("[Leaderboard] Failed to build board for session %s: %v", req.SessionID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	rank := game.RankFor(ranked, session.Pseudo)

	// Prefer the Redis sorted set when it is populated; any cache
	// failure keeps the database ranking computed above.
	if h.cache != nil {
		cached, cacheErr := h.cache.TopTimes(r.Context(), 0)
		if cacheErr == nil && len(cached) > 0 {
			if cachedRank, rankErr := h.cache.PlayerRank(r.Context(), session.Pseudo); rankErr == nil {
				ranked = cached
				rank = cachedRank
			}
		} else if cacheErr != nil {
			log.Printf("[Leaderboard] Cache unavailable, serving from database: %v", cacheErr)
		}
	}

	json.NewEncoder(w).Encode(LeaderboardResponse{
		RankedUsers:       ranked,
		Rank:              rank,
		PlayerElapsedTime: session.ElapsedMs,
	})
}
