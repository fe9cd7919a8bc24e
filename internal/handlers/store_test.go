package handlers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/charhunt/api/internal/game"
	"github.com/charhunt/api/internal/models"
)

// fakeStore implements game.Store in memory for handler tests.
type fakeStore struct {
	mu         sync.Mutex
	sessions   map[string]*models.GameSession
	characters map[string]*models.Character
	usersByPs  map[string]int
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:   make(map[string]*models.GameSession),
		characters: make(map[string]*models.Character),
		usersByPs:  make(map[string]int),
	}
}

func (f *fakeStore) addCharacter(name string, x, y int) {
	f.characters[name] = &models.Character{ID: len(f.characters) + 1, Name: name, PosX: x, PosY: y}
}

func (f *fakeStore) CreateSession(ctx context.Context) (*models.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	session := &models.GameSession{
		SessionID:  fmt.Sprintf("session-%d", f.nextID),
		StartTime:  time.Now(),
		FoundNames: []string{},
	}
	f.sessions[session.SessionID] = session
	return session, nil
}

func (f *fakeStore) Session(ctx context.Context, sessionID string) (*models.GameSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	copied := *session
	copied.FoundNames = append([]string(nil), session.FoundNames...)
	return &copied, nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return game.ErrSessionNotFound
	}
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeStore) CharacterByName(ctx context.Context, name string) (*models.Character, error) {
	if character, ok := f.characters[name]; ok {
		return character, nil
	}
	return nil, game.ErrCharacterNotFound
}

func (f *fakeStore) CharacterCount(ctx context.Context) (int, error) {
	return len(f.characters), nil
}

func (f *fakeStore) CreditFind(ctx context.Context, sessionID, characterName string) (game.CreditResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.EndTime != nil {
		return game.CreditResult{}, nil
	}
	for _, name := range session.FoundNames {
		if name == characterName {
			return game.CreditResult{}, nil
		}
	}
	session.CharactersFound++
	session.FoundNames = append(session.FoundNames, characterName)
	return game.CreditResult{
		Credited:        true,
		CharactersFound: session.CharactersFound,
		StartTime:       session.StartTime,
	}, nil
}

func (f *fakeStore) CompleteSession(ctx context.Context, sessionID string, endTime time.Time, elapsedMs int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.EndTime != nil {
		return false, nil
	}
	session.EndTime = &endTime
	session.ElapsedMs = &elapsedMs
	return true, nil
}

func (f *fakeStore) SetSessionPseudo(ctx context.Context, sessionID, pseudo string, playerID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return game.ErrSessionNotFound
	}
	session.Pseudo = pseudo
	session.PlayerID = playerID
	return nil
}

func (f *fakeStore) UserIDByPseudo(ctx context.Context, pseudo string) (int, bool, error) {
	id, ok := f.usersByPs[pseudo]
	return id, ok, nil
}

func (f *fakeStore) CompletedRuns(ctx context.Context) ([]models.CompletedRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var runs []models.CompletedRun
	for _, session := range f.sessions {
		if session.EndTime == nil {
			continue
		}
		runs = append(runs, models.CompletedRun{
			Pseudo:    session.Pseudo,
			PlayerID:  session.PlayerID,
			ElapsedMs: *session.ElapsedMs,
			EndTime:   *session.EndTime,
		})
	}
	return runs, nil
}

func (f *fakeStore) DeleteInactiveSessions(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, session := range f.sessions {
		if session.EndTime == nil && session.StartTime.Before(before) {
			delete(f.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// completeSession force-finishes a session with the given elapsed time.
func (f *fakeStore) completeSession(t *testing.T, sessionID string, elapsedMs int64) {
	t.Helper()
	now := time.Now()
	if _, err := f.CompleteSession(context.Background(), sessionID, now, elapsedMs); err != nil {
		t.Fatalf("failed to complete session: %v", err)
	}
}

func newTestService(t *testing.T, store *fakeStore) *game.Service {
	t.Helper()
	svc, err := game.NewService(store, 0)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}
