package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charhunt/api/internal/game"
)

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestStartGameReturnsSessionID(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	handler := NewGameHandler(newTestService(t, store), nil)

	rec := postJSON(t, handler.StartGame, map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[StartGameResponse](t, rec)
	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
}

func TestStartGameRejectsGet(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	handler := NewGameHandler(newTestService(t, store), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.StartGame(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestPlayHitAndMiss(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	store.addCharacter("Gladys", 421, 1850)
	svc := newTestService(t, store)
	handler := NewGameHandler(svc, nil)

	session, _ := svc.StartGame(context.Background())

	rec := postJSON(t, handler.Play, PlayRequest{
		SessionID: session.SessionID, CharacterName: "Batman", PosX: 874, PosY: 937,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[PlayResponse](t, rec)
	if !resp.CharacterFound {
		t.Error("expected a hit at the exact position")
	}
	if resp.CharacterName != "Batman" {
		t.Errorf("characterName = %q, want Batman", resp.CharacterName)
	}
	if resp.EndOfGame {
		t.Error("one of two characters must not end the game")
	}

	// Same character again: already credited, reported as a miss.
	rec = postJSON(t, handler.Play, PlayRequest{
		SessionID: session.SessionID, CharacterName: "Batman", PosX: 874, PosY: 937,
	})
	resp = decode[PlayResponse](t, rec)
	if resp.CharacterFound {
		t.Error("re-submitting a found character must report a miss")
	}
}

func TestPlayUnknownCharacterIs404(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	svc := newTestService(t, store)
	handler := NewGameHandler(svc, nil)

	session, _ := svc.StartGame(context.Background())

	rec := postJSON(t, handler.Play, PlayRequest{
		SessionID: session.SessionID, CharacterName: "Joker", PosX: 1, PosY: 1,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Error != MsgCharacterNotFound {
		t.Errorf("error = %q, want %q", resp.Error, MsgCharacterNotFound)
	}
}

func TestPlayUnknownSessionIs404(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	handler := NewGameHandler(newTestService(t, store), nil)

	rec := postJSON(t, handler.Play, PlayRequest{
		SessionID: "missing", CharacterName: "Batman", PosX: 874, PosY: 937,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Error != MsgSessionNotFound {
		t.Errorf("error = %q, want %q", resp.Error, MsgSessionNotFound)
	}
}

func TestPlayCompletingGuessReportsTime(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	svc := newTestService(t, store)
	cache := &fakeCache{}
	handler := NewGameHandler(svc, cache)

	session, _ := svc.StartGame(context.Background())
	if _, err := svc.AttachPseudo(context.Background(), session.SessionID, "winner"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := postJSON(t, handler.Play, PlayRequest{
		SessionID: session.SessionID, CharacterName: "Batman", PosX: 874, PosY: 937,
	})
	resp := decode[PlayResponse](t, rec)
	if !resp.CharacterFound || !resp.EndOfGame {
		t.Fatalf("expected completing hit, got %+v", resp)
	}

	if len(cache.recorded) != 1 || cache.recorded[0].pseudo != "winner" {
		t.Errorf("expected completion cached for winner, got %+v", cache.recorded)
	}
}

func TestPlayCompletingGuessReportsZeroSecondRun(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	svc := newTestService(t, store)
	handler := NewGameHandler(svc, nil)

	session, _ := svc.StartGame(context.Background())

	// The run finishes in well under a second, so the whole-second
	// elapsed time is 0 and must still appear in the response.
	rec := postJSON(t, handler.Play, PlayRequest{
		SessionID: session.SessionID, CharacterName: "Batman", PosX: 874, PosY: 937,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	raw := decode[map[string]json.RawMessage](t, rec)
	value, ok := raw["time"]
	if !ok {
		t.Fatal("completing guess must report the elapsed time")
	}
	if string(value) != "0" {
		t.Errorf("time = %s, want 0", value)
	}
}

func TestPseudoValidationFailure(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	svc := newTestService(t, store)
	handler := NewGameHandler(svc, nil)

	session, _ := svc.StartGame(context.Background())

	rec := postJSON(t, handler.Pseudo, PseudoRequest{
		SessionID: session.SessionID, Pseudo: "ab",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decode[ValidationErrorResponse](t, rec)
	if len(resp.Errors) == 0 {
		t.Fatal("expected validation errors")
	}
}

func TestPseudoAttachesAndCachesCompletedRun(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	svc := newTestService(t, store)
	cache := &fakeCache{}
	handler := NewGameHandler(svc, cache)

	session, _ := svc.StartGame(context.Background())
	store.completeSession(t, session.SessionID, 42000)

	rec := postJSON(t, handler.Pseudo, PseudoRequest{
		SessionID: session.SessionID, Pseudo: "Player_1-2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[PseudoResponse](t, rec)
	if !resp.Success || resp.PseudoUser != "Player_1-2" {
		t.Errorf("unexpected response: %+v", resp)
	}

	if len(cache.recorded) != 1 || cache.recorded[0].elapsedMs != 42000 {
		t.Errorf("expected completed run cached, got %+v", cache.recorded)
	}
}

func TestNoLoginDeletesSession(t *testing.T) {
	store := newFakeStore()
	store.addCharacter("Batman", 874, 937)
	svc := newTestService(t, store)
	handler := NewGameHandler(svc, nil)

	session, _ := svc.StartGame(context.Background())

	rec := postJSON(t, handler.NoLogin, NoLoginRequest{SessionID: session.SessionID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[map[string]bool](t, rec)
	if !resp["sessionDeleted"] {
		t.Error("expected sessionDeleted: true")
	}

	rec = postJSON(t, handler.NoLogin, NoLoginRequest{SessionID: session.SessionID})
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

// fakeCache records leaderboard cache calls.
type fakeCache struct {
	recorded []struct {
		pseudo    string
		elapsedMs int64
	}
	top     []game.RankedUser
	rank    int
	best    int64
	bestOk  bool
	topErr  error
	rankErr error
	bestErr error
}

func (f *fakeCache) RecordTime(ctx context.Context, pseudo string, elapsedMs int64) error {
	f.recorded = append(f.recorded, struct {
		pseudo    string
		elapsedMs int64
	}{pseudo, elapsedMs})
	return nil
}

func (f *fakeCache) TopTimes(ctx context.Context, limit int64) ([]game.RankedUser, error) {
	return f.top, f.topErr
}

func (f *fakeCache) PlayerRank(ctx context.Context, pseudo string) (int, error) {
	return f.rank, f.rankErr
}

func (f *fakeCache) PlayerBestTime(ctx context.Context, pseudo string) (int64, bool, error) {
	return f.best, f.bestOk, f.bestErr
}
