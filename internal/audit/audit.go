// Package audit implements the append-only side-channel record of
// accepted registrations: a JSON array file holding one object per
// registration, plaintext included. It is independent of the record
// store and strictly best-effort — callers must never fail a request
// because an append failed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is a single audit record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Hash      string    `json:"hash"`
}

// Log is a JSON-array file of Entries. Appends rewrite the whole file
// via a temp file and rename, so a crash mid-append never corrupts it.
type Log struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// New prepares the audit log at path, creating the parent directory and
// initializing the file to an empty array if it does not exist.
func New(path string, logger *slog.Logger) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating audit directory: %w", err)
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
			return nil, fmt.Errorf("initializing audit log: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking audit log: %w", err)
	}

	logger.Info("audit log ready", "path", path)
	return &Log{path: path, logger: logger}, nil
}

// Append adds an entry to the log. Appends are serialized; the file is
// read, extended and rewritten whole.
func (l *Log) Append(ctx context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("reading audit log: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing audit log: %w", err)
	}

	entries = append(entries, entry)

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding audit log: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replacing audit log: %w", err)
	}
	return nil
}
