package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/password-club/internal/config"
	"github.com/password-club/internal/domain"
)

// Leaderboard serves the top users ranked by distinct-password count,
// memoized behind a fixed time window. One snapshot for the whole
// board; a stale snapshot is replaced wholesale, never patched.
type Leaderboard struct {
	store  RecordStore
	window time.Duration
	limit  int
	logger *slog.Logger

	mu         sync.Mutex
	rows       []domain.LeaderboardRow
	computedAt time.Time
}

// NewLeaderboard creates the leaderboard cache. It is constructed once
// at startup and handed to the HTTP layer; there is no teardown.
func NewLeaderboard(store RecordStore, cfg *config.LeaderboardConfig, logger *slog.Logger) *Leaderboard {
	return &Leaderboard{
		store:  store,
		window: cfg.CacheWindow,
		limit:  cfg.Limit,
		logger: logger,
	}
}

// Top returns the current leaderboard. A snapshot younger than the
// window is served as-is without touching the store. On a miss the
// aggregate query runs synchronously; concurrent misses may each run
// it, last writer wins. A store failure propagates to the caller and
// leaves the previous snapshot in place for the next attempt.
func (l *Leaderboard) Top(ctx context.Context) ([]domain.LeaderboardRow, error) {
	l.mu.Lock()
	if !l.computedAt.IsZero() && time.Since(l.computedAt) < l.window {
		rows := l.rows
		l.mu.Unlock()
		return rows, nil
	}
	l.mu.Unlock()

	rows, err := l.store.TopUsers(ctx, l.limit)
	if err != nil {
		return nil, fmt.Errorf("computing leaderboard: %w", err)
	}

	l.mu.Lock()
	l.rows = rows
	l.computedAt = time.Now()
	l.mu.Unlock()

	l.logger.Debug("leaderboard snapshot refreshed", "rows", len(rows))
	return rows, nil
}
