package game

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charhunt/api/internal/models"
)

// Tolerance is the hit-test band: a guess counts as a hit when both
// coordinates are within this many units of the character's position,
// boundary included. Accounts for pointer/tap imprecision on a scaled
// display.
const Tolerance = 5

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidSession    = errors.New("invalid session or not finished")
	ErrUserNotFound      = errors.New("user not found")
)

// CreditResult reports the outcome of the atomic find-credit update.
type CreditResult struct {
	Credited        bool
	CharactersFound int
	StartTime       time.Time
}

// Store is the persistence surface the game service runs against.
// The production implementation lives in internal/database; tests use
// an in-memory fake.
type Store interface {
	CreateSession(ctx context.Context) (*models.GameSession, error)
	Session(ctx context.Context, sessionID string) (*models.GameSession, error)
	DeleteSession(ctx context.Context, sessionID string) error

	CharacterByName(ctx context.Context, name string) (*models.Character, error)
	CharacterCount(ctx context.Context) (int, error)

	// CreditFind atomically increments the found counter and appends the
	// character name to the session's found-set, but only when the session
	// is still active and the name has not been credited before.
	CreditFind(ctx context.Context, sessionID, characterName string) (CreditResult, error)

	// CompleteSession conditionally writes the terminal state; it returns
	// false when another request already completed the session.
	CompleteSession(ctx context.Context, sessionID string, endTime time.Time, elapsedMs int64) (bool, error)

	SetSessionPseudo(ctx context.Context, sessionID, pseudo string, playerID *int) error
	UserIDByPseudo(ctx context.Context, pseudo string) (int, bool, error)

	CompletedRuns(ctx context.Context) ([]models.CompletedRun, error)
	DeleteInactiveSessions(ctx context.Context, before time.Time) (int64, error)
}

// GuessResult is the outcome of one submitted guess.
type GuessResult struct {
	Found         bool
	CharacterName string
	EndOfGame     bool
	TimeSeconds   int64
	ElapsedMs     int64
}

// Service implements the game session state machine over a Store.
type Service struct {
	store Store
	total int
	now   func() time.Time
}

// NewService creates a game service. totalCharacters is the number of
// characters a session must find to complete; when zero it is derived
// from the character catalog.
func NewService(store Store, totalCharacters int) (*Service, error) {
	if totalCharacters <= 0 {
		count, err := store.CharacterCount(context.Background())
		if err != nil {
			return nil, err
		}
		totalCharacters = count
		log.Printf("[Game] Total characters derived from catalog: %d", totalCharacters)
	}
	return &Service{store: store, total: totalCharacters, now: time.Now}, nil
}

// TotalCharacters returns the configured completion target.
func (s *Service) TotalCharacters() int {
	return s.total
}

// StartGame creates a fresh active session and returns it.
func (s *Service) StartGame(ctx context.Context) (*models.GameSession, error) {
	return s.store.CreateSession(ctx)
}

// Session looks up a session by id.
func (s *Service) Session(ctx context.Context, sessionID string) (*models.GameSession, error) {
	return s.store.Session(ctx, sessionID)
}

// hit reports whether a guess lands within the tolerance band of a
// character. Boundary values count as hits.
func hit(c *models.Character, x, y int) bool {
	return x >= c.PosX-Tolerance && x <= c.PosX+Tolerance &&
		y >= c.PosY-Tolerance && y <= c.PosY+Tolerance
}

// SubmitGuess runs one guess through the state machine.
//
// A session that does not exist, or that already completed, is treated
// the same: there is no active session to play against. A character
// already credited for the session never counts a second time, so
// charactersFound can never exceed the total.
func (s *Service) SubmitGuess(ctx context.Context, sessionID, characterName string, x, y int) (*GuessResult, error) {
	character, err := s.store.CharacterByName(ctx, characterName)
	if err != nil {
		return nil, err
	}

	session, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, ErrSessionNotFound
	}

	if !hit(character, x, y) {
		return &GuessResult{Found: false}, nil
	}

	credit, err := s.store.CreditFind(ctx, sessionID, character.Name)
	if err != nil {
		return nil, err
	}
	if !credit.Credited {
		// Already found, or the session completed under us.
		return &GuessResult{Found: false}, nil
	}

	result := &GuessResult{Found: true, CharacterName: character.Name}

	if credit.CharactersFound >= s.total {
		now := s.now()
		elapsedMs := now.Sub(credit.StartTime).Milliseconds()
		won, err := s.store.CompleteSession(ctx, sessionID, now, elapsedMs)
		if err != nil {
			return nil, err
		}
		if won {
			result.EndOfGame = true
			result.ElapsedMs = elapsedMs
			result.TimeSeconds = elapsedMs / 1000
			log.Printf("[Game] Session %s completed in %dms", sessionID, elapsedMs)
		}
	}

	return result, nil
}

// AttachPseudo stores a pseudo on the session; when an account with
// that pseudo exists the session is linked to it.
func (s *Service) AttachPseudo(ctx context.Context, sessionID, pseudo string) (*models.GameSession, error) {
	session, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var playerID *int
	if id, ok, err := s.store.UserIDByPseudo(ctx, pseudo); err != nil {
		return nil, err
	} else if ok {
		playerID = &id
	}

	if err := s.store.SetSessionPseudo(ctx, sessionID, pseudo, playerID); err != nil {
		return nil, err
	}

	session.Pseudo = pseudo
	session.PlayerID = playerID
	return session, nil
}

// DeleteSession removes a session explicitly ("nologin" cleanup).
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.store.Session(ctx, sessionID); err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, sessionID)
}
