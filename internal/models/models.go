package models

import "time"

// User represents a registered account
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Pseudo       string    `json:"pseudo"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Character represents a hidden character and its target coordinates
// in the normalized image space. Rows are seeded once and never change.
type Character struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	PosX int    `json:"posX"`
	PosY int    `json:"posY"`
}

// GameSession represents one play-through attempt.
// EndTime and ElapsedMs are either both nil (session still active)
// or both set (session completed).
type GameSession struct {
	SessionID       string     `json:"sessionId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	ElapsedMs       *int64     `json:"elapsedTime"`
	CharactersFound int        `json:"charactersFound"`
	FoundNames      []string   `json:"foundCharactersName"`
	Pseudo          string     `json:"pseudo,omitempty"`
	PlayerID        *int       `json:"playerId,omitempty"`
}

// Completed reports whether the session has reached its terminal state.
func (s *GameSession) Completed() bool {
	return s.EndTime != nil
}

// CompletedRun is one finished session as fed to the leaderboard ranker.
type CompletedRun struct {
	Pseudo    string    `json:"pseudo"`
	PlayerID  *int      `json:"playerId,omitempty"`
	ElapsedMs int64     `json:"elapsedTime"`
	EndTime   time.Time `json:"endTime"`
}
