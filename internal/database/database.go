package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/charhunt/api/internal/config"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Config holds database configuration
type Config struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads database configuration from environment variables
func LoadConfigFromEnv() *Config {
	return &Config{
		Host:            config.Get("DB_HOST", "localhost"),
		Port:            config.Get("DB_PORT", "5432"),
		User:            config.Get("DB_USER", "charhunt"),
		Password:        config.Get("DB_PASSWORD", "charhunt_password"),
		DBName:          config.Get("DB_NAME", "charhunt_db"),
		SSLMode:         config.Get("DB_SSLMODE", "disable"),
		MaxOpenConns:    config.GetInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    config.GetInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: config.GetDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: config.GetDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
	}
}

// NewConnection creates a new database connection with the provided configuration
func NewConnection(config *Config) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[Database] Connected to %s:%s/%s", config.Host, config.Port, config.DBName)
	log.Printf("[Database] Pool config: MaxOpen=%d, MaxIdle=%d", config.MaxOpenConns, config.MaxIdleConns)

	return &DB{db}, nil
}

// InitSchema creates database tables if they don't exist
func (db *DB) InitSchema() error {
	schema := `
	-- Users table
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		pseudo VARCHAR(20) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	-- Character catalog (static reference data, seeded once)
	CREATE TABLE IF NOT EXISTS characters (
		id SERIAL PRIMARY KEY,
		name VARCHAR(50) UNIQUE NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL
	);

	-- Game sessions table
	CREATE TABLE IF NOT EXISTS game_sessions (
		session_id UUID PRIMARY KEY,
		start_time TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		end_time TIMESTAMPTZ,
		elapsed_ms BIGINT,
		characters_found INTEGER NOT NULL DEFAULT 0,
		found_names TEXT[] NOT NULL DEFAULT '{}',
		pseudo VARCHAR(20),
		player_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		CHECK ((end_time IS NULL) = (elapsed_ms IS NULL))
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_pseudo ON users(pseudo);
	CREATE INDEX IF NOT EXISTS idx_characters_name ON characters(name);
	CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON game_sessions(start_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_end_time ON game_sessions(end_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_player_id ON game_sessions(player_id);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Println("[Database] Schema initialized with indexes")
	return nil
}

// SeedCharacters inserts the character catalog if not already present.
// Positions are in the normalized coordinate space of the game image.
func (db *DB) SeedCharacters() error {
	seed := `
	INSERT INTO characters (name, pos_x, pos_y) VALUES
		('Batman', 874, 937),
		('Gladys', 421, 1850),
		('Grievious', 1778, 2062),
		('Mr.Book', 1098, 2024)
	ON CONFLICT (name) DO NOTHING;
	`

	_, err := db.Exec(seed)
	if err != nil {
		return fmt.Errorf("failed to seed characters: %w", err)
	}

	log.Println("[Database] Character catalog seeded")
	return nil
}
