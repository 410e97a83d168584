package domain

import "time"

// UserRecord is a single accepted registration stored in the record store.
// Records are append-only: created once, never updated or deleted.
type UserRecord struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// LeaderboardRow is one entry of the leaderboard: a username and its
// count of distinct accepted passwords.
type LeaderboardRow struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResult is the outcome of a registration attempt. Status is the
// HTTP status the handler should respond with; benign duplicates carry
// Success=false with Status 200.
type RegisterResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}
