// Package store provides the SQLite-backed record store of accepted
// registrations. The table is append-only; rows are never updated or
// deleted.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/password-club/internal/config"
	"github.com/password-club/internal/domain"
)

// Store provides SQLite-based data access
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the SQLite database at the configured path and
// prepares the schema. SQLite supports one writer at a time, so the
// connection pool is capped at a single connection.
func New(cfg *config.StoreConfig, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying pragmas: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas sets the required SQLite configuration
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %q: %w", pragma, err)
		}
	}
	return nil
}

// InitSchema creates the users table and its indexes. Idempotent. The
// UNIQUE index on password_hash is the duplicate-detection backstop: a
// concurrent registration that slips past the existence check fails
// here instead of producing a second row with the same hash.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_password_hash ON users(password_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username COLLATE NOCASE)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}

	s.logger.Info("record store schema ready")
	return nil
}

// UserExists reports whether any record exists for the username,
// compared case-insensitively.
func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? COLLATE NOCASE)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

// FindByPasswordHash returns the record owning the given hash, or
// domain.ErrNotFound. By the uniqueness invariant there is at most one.
func (s *Store) FindByPasswordHash(ctx context.Context, hash string) (*domain.UserRecord, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE password_hash = ?
	`

	var rec domain.UserRecord
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&rec.ID,
		&rec.Username,
		&rec.PasswordHash,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("finding record by hash: %w", err)
	}
	return &rec, nil
}

// Insert appends a new record. The username is stored as given (trimmed,
// original casing). A UNIQUE violation on the hash index is returned as
// domain.ErrDuplicateHash so the caller can treat it as a benign
// duplicate rather than a store failure.
func (s *Store) Insert(ctx context.Context, username, hash string) (*domain.UserRecord, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
		RETURNING id, username, password_hash, created_at
	`

	var rec domain.UserRecord
	err := s.db.QueryRowContext(ctx, query, username, hash).Scan(
		&rec.ID,
		&rec.Username,
		&rec.PasswordHash,
		&rec.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, domain.ErrDuplicateHash
		}
		return nil, fmt.Errorf("inserting record: %w", err)
	}
	return &rec, nil
}

// TopUsers returns up to limit usernames ordered by count of distinct
// accepted passwords, descending. Ties break alphabetically so the
// ordering is stable.
func (s *Store) TopUsers(ctx context.Context, limit int) ([]domain.LeaderboardRow, error) {
	query := `
		SELECT username, COUNT(*) AS cnt
		FROM users
		GROUP BY username
		ORDER BY cnt DESC, username ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top users: %w", err)
	}
	defer rows.Close()

	var result []domain.LeaderboardRow
	for rows.Next() {
		var row domain.LeaderboardRow
		if err := rows.Scan(&row.Username, &row.Count); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading leaderboard rows: %w", err)
	}
	return result, nil
}
