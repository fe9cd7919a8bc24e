package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/charhunt/api/internal/game"
	"github.com/charhunt/api/internal/models"
)

// Store implements game.Store over the Postgres connection.
type Store struct {
	db *DB
}

// NewStore creates the Postgres-backed game store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// CreateSession inserts a fresh active session with a generated id.
func (s *Store) CreateSession(ctx context.Context) (*models.GameSession, error) {
	session := &models.GameSession{
		SessionID:  uuid.NewString(),
		FoundNames: []string{},
	}

	query := `
		INSERT INTO game_sessions (session_id)
		VALUES ($1)
		RETURNING start_time
	`
	if err := s.db.QueryRowContext(ctx, query, session.SessionID).Scan(&session.StartTime); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Session looks up a session by id.
func (s *Store) Session(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var (
		session  models.GameSession
		found    pq.StringArray
		pseudo   sql.NullString
		playerID sql.NullInt64
	)

	query := `
		SELECT session_id, start_time, end_time, elapsed_ms, characters_found, found_names, pseudo, player_id
		FROM game_sessions
		WHERE session_id = $1
	`
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.SessionID,
		&session.StartTime,
		&session.EndTime,
		&session.ElapsedMs,
		&session.CharactersFound,
		&found,
		&pseudo,
		&playerID,
	)
	if err == sql.ErrNoRows {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	session.FoundNames = []string(found)
	if pseudo.Valid {
		session.Pseudo = pseudo.String
	}
	if playerID.Valid {
		id := int(playerID.Int64)
		session.PlayerID = &id
	}
	return &session, nil
}

// DeleteSession removes a session row.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM game_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if rows == 0 {
		return game.ErrSessionNotFound
	}
	return nil
}

// CharacterByName looks up a catalog character.
func (s *Store) CharacterByName(ctx context.Context, name string) (*models.Character, error) {
	var character models.Character
	query := `SELECT id, name, pos_x, pos_y FROM characters WHERE name = $1`
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&character.ID,
		&character.Name,
		&character.PosX,
		&character.PosY,
	)
	if err == sql.ErrNoRows {
		return nil, game.ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch character: %w", err)
	}
	return &character, nil
}

// CharacterCount returns the size of the character catalog.
func (s *Store) CharacterCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count characters: %w", err)
	}
	return count, nil
}

// CreditFind increments the found counter and appends the name in a
// single conditional UPDATE. The WHERE clause rejects sessions that
// already completed and names already credited, so concurrent guesses
// for the same session cannot double-credit or lose updates.
func (s *Store) CreditFind(ctx context.Context, sessionID, characterName string) (game.CreditResult, error) {
	query := `
		UPDATE game_sessions
		SET characters_found = characters_found + 1,
		    found_names = array_append(found_names, $2)
		WHERE session_id = $1
		  AND end_time IS NULL
		  AND NOT ($2 = ANY(found_names))
		RETURNING characters_found, start_time
	`

	var result game.CreditResult
	err := s.db.QueryRowContext(ctx, query, sessionID, characterName).Scan(
		&result.CharactersFound,
		&result.StartTime,
	)
	if err == sql.ErrNoRows {
		// Session gone, finished, or name already credited: no credit.
		return game.CreditResult{}, nil
	}
	if err != nil {
		return game.CreditResult{}, fmt.Errorf("failed to credit find: %w", err)
	}

	result.Credited = true
	return result, nil
}

// CompleteSession writes the terminal state with a compare-and-set on
// end_time so at most one request observes the completion transition.
func (s *Store) CompleteSession(ctx context.Context, sessionID string, endTime time.Time, elapsedMs int64) (bool, error) {
	query := `
		UPDATE game_sessions
		SET end_time = $2, elapsed_ms = $3
		WHERE session_id = $1 AND end_time IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, sessionID, endTime, elapsedMs)
	if err != nil {
		return false, fmt.Errorf("failed to complete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to complete session: %w", err)
	}
	return rows == 1, nil
}

// SetSessionPseudo attaches a pseudo (and optional account link) to a session.
func (s *Store) SetSessionPseudo(ctx context.Context, sessionID, pseudo string, playerID *int) error {
	query := `UPDATE game_sessions SET pseudo = $2, player_id = $3 WHERE session_id = $1`
	result, err := s.db.ExecContext(ctx, query, sessionID, pseudo, playerID)
	if err != nil {
		return fmt.Errorf("failed to set session pseudo: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set session pseudo: %w", err)
	}
	if rows == 0 {
		return game.ErrSessionNotFound
	}
	return nil
}

// UserIDByPseudo resolves a registered account by pseudo.
func (s *Store) UserIDByPseudo(ctx context.Context, pseudo string) (int, bool, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE pseudo = $1`, pseudo).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch user by pseudo: %w", err)
	}
	return id, true, nil
}

// CompletedRuns returns every completed session for the ranker, oldest
// completion first so ties keep chronological order.
func (s *Store) CompletedRuns(ctx context.Context) ([]models.CompletedRun, error) {
	query := `
		SELECT COALESCE(pseudo, ''), player_id, elapsed_ms, end_time
		FROM game_sessions
		WHERE end_time IS NOT NULL
		ORDER BY end_time ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completed runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CompletedRun
	for rows.Next() {
		var (
			run      models.CompletedRun
			playerID sql.NullInt64
		)
		if err := rows.Scan(&run.Pseudo, &playerID, &run.ElapsedMs, &run.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan completed run: %w", err)
		}
		if playerID.Valid {
			id := int(playerID.Int64)
			run.PlayerID = &id
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completed runs: %w", err)
	}
	return runs, nil
}

// DeleteInactiveSessions removes never-completed sessions started before
// the cutoff. Used by the janitor sweep.
func (s *Store) DeleteInactiveSessions(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM game_sessions WHERE end_time IS NULL AND start_time < $1`
	result, err := s.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive sessions: %w", err)
	}
	return rows, nil
}
