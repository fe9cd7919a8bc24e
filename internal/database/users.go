package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charhunt/api/internal/game"
	"github.com/charhunt/api/internal/models"
)

// CreateUser inserts a new account and returns its id. Unique-constraint
// violations are returned unwrapped so callers can map them to
// field-specific messages.
func (s *Store) CreateUser(ctx context.Context, email, pseudo, passwordHash string) (int, error) {
	var id int
	query := `
		INSERT INTO users (email, pseudo, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, query, email, pseudo, passwordHash).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// UserByEmail fetches an account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, pseudo, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email))
}

// UserByID fetches an account by id.
func (s *Store) UserByID(ctx context.Context, id int) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, pseudo, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id))
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Pseudo,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, game.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}
