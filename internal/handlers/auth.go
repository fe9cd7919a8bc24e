package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/charhunt/api/internal/auth"
	"github.com/charhunt/api/internal/game"
	"github.com/charhunt/api/internal/middleware"
	"github.com/charhunt/api/internal/models"
)

// UserStore is the account persistence surface the auth handler needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, pseudo, passwordHash string) (int, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id int) (*models.User, error)
}

type AuthHandler struct {
	users UserStore
	svc   *game.Service
	cache LeaderboardCache
}

func NewAuthHandler(users UserStore, svc *game.Service, cache LeaderboardCache) *AuthHandler {
	return &AuthHandler{users: users, svc: svc, cache: cache}
}

// SignUpRequest represents the signup request body
type SignUpRequest struct {
	Pseudo          string `json:"pseudo"`
	Email           string `json:"email"`
	Password        string `json:"pw"`
	PasswordConfirm string `json:"confpw"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"pw"`
}

// RefreshTokenRequest represents the refresh token request body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse carries the issued token pair
type LoginResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SignUpResponse confirms account creation; no sensitive data is echoed
type SignUpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SignUp handles account registration
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	// Normalize once so validation, the stored hash and later logins
	// all see the same values.
	req.Pseudo = strings.TrimSpace(req.Pseudo)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	req.PasswordConfirm = strings.TrimSpace(req.PasswordConfirm)

	if violations := validateSignUp(&req); len(violations) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ValidationErrorResponse{Errors: violations})
		return
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[Auth] Failed to hash password: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	userID, err := h.users.CreateUser(r.Context(), req.Email, req.Pseudo, string(hashedPassword))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			w.WriteHeader(http.StatusBadRequest)
			if strings.Contains(err.Error(), "pseudo") {
				json.NewEncoder(w).Encode(ErrorResponse{Error: MsgPseudoAlreadyTaken})
			} else {
				json.NewEncoder(w).Encode(ErrorResponse{Error: MsgEmailAlreadyExists})
			}
			return
		}
		log.Printf("[Auth] Failed to insert user: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	json.NewEncoder(w).Encode(SignUpResponse{Success: true, Message: "Account successfully created!"})

	log.Printf("[Auth] User registered successfully: %s (ID: %d)", req.Pseudo, userID)
}

// Login handles user authentication. Unknown email and wrong password
// produce the same response so callers cannot probe which one failed.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)

	user, err := h.users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, game.ErrUserNotFound) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgInvalidCredentials})
			return
		}
		log.Printf("[Auth] Failed to fetch user: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgInvalidCredentials})
		return
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, user.Pseudo, user.Email)
	if err != nil {
		log.Printf("[Auth] Failed to generate access token: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(user.ID, user.Pseudo)
	if err != nil {
		log.Printf("[Auth] Failed to generate refresh token: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	json.NewEncoder(w).Encode(LoginResponse{
		Message:      "User logged in",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})

	log.Printf("[Auth] User logged in successfully: %s (ID: %d)", user.Pseudo, user.ID)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	claims, err := auth.ValidateToken(req.RefreshToken)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid refresh token"})
		return
	}

	user, err := h.users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, game.ErrUserNotFound) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUserNotFound})
			return
		}
		log.Printf("[Auth] Failed to fetch user: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, user.Pseudo, user.Email)
	if err != nil {
		log.Printf("[Auth] Failed to generate access token: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(user.ID, user.Pseudo)
	if err != nil {
		log.Printf("[Auth] Failed to generate refresh token: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	json.NewEncoder(w).Encode(LoginResponse{
		Message:      "Token refreshed",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// ProfileResponse is the authenticated user's account and standing.
type ProfileResponse struct {
	User        *models.User `json:"user"`
	Rank        int          `json:"rank"`
	BestTime    *int64       `json:"bestTime,omitempty"`
	TotalToFind int          `json:"totalToFind"`
}

// Profile returns the authenticated user's account and leaderboard standing
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	claims, ok := middleware.GetUserClaims(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Unauthorized"})
		return
	}

	user, err := h.users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, game.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUserNotFound})
			return
		}
		log.Printf("[Auth] Failed to fetch user: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: MsgUnknownError})
		return
	}

	resp := ProfileResponse{User: user, TotalToFind: h.svc.TotalCharacters()}

	if rank, best, ok := h.cachedStanding(r.Context(), user.Pseudo); ok {
		resp.Rank = rank
		resp.BestTime = best
	} else if ranked, err := h.svc.RankedBoard(r.Context()); err != nil {
		log.Printf("[Auth] Failed to rank board for profile: %v", err)
	} else {
		resp.Rank = game.RankFor(ranked, user.Pseudo)
		for _, entry := range ranked {
			if entry.Pseudo == user.Pseudo {
				best := entry.ElapsedMs
				resp.BestTime = &best
				break
			}
		}
	}

	json.NewEncoder(w).Encode(resp)
}

// cachedStanding reads the player's rank and best time from the
// leaderboard cache. ok is false when the cache is absent, fails, or
// has no entry for the pseudo, so the caller ranks from the database.
func (h *AuthHandler) cachedStanding(ctx context.Context, pseudo string) (int, *int64, bool) {
	if h.cache == nil {
		return 0, nil, false
	}
	rank, err := h.cache.PlayerRank(ctx, pseudo)
	if err != nil || rank == 0 {
		return 0, nil, false
	}
	best, found, err := h.cache.PlayerBestTime(ctx, pseudo)
	if err != nil || !found {
		return 0, nil, false
	}
	return rank, &best, true
}
