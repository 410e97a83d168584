// Package service holds the business logic: the registration pipeline
// and the leaderboard cache.
package service

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/password-club/internal/audit"
	"github.com/password-club/internal/domain"
	"github.com/password-club/internal/password"
)

const maxUsernameLen = 50

// RecordStore is the persistence surface the service depends on.
type RecordStore interface {
	UserExists(ctx context.Context, username string) (bool, error)
	FindByPasswordHash(ctx context.Context, hash string) (*domain.UserRecord, error)
	Insert(ctx context.Context, username, hash string) (*domain.UserRecord, error)
	TopUsers(ctx context.Context, limit int) ([]domain.LeaderboardRow, error)
}

// AuditSink receives the best-effort audit record of each accepted
// registration.
type AuditSink interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// PickFunc selects an index in [0, n). Injectable so tests can pin the
// celebratory message selection.
type PickFunc func(n int) int

// Registration orchestrates validation, hashing, deduplication, the
// record insert and the audit append for one attempt.
type Registration struct {
	store  RecordStore
	audit  AuditSink
	pick   PickFunc
	logger *slog.Logger
}

// NewRegistration creates the registration pipeline. A nil pick falls
// back to the shared math/rand source.
func NewRegistration(store RecordStore, auditLog AuditSink, pick PickFunc, logger *slog.Logger) *Registration {
	if pick == nil {
		pick = rand.Intn
	}
	return &Registration{
		store:  store,
		audit:  auditLog,
		pick:   pick,
		logger: logger,
	}
}

// Register runs the pipeline, short-circuiting on the first failed step.
// Validation failures map to 400; a password already owned by anyone is
// a benign duplicate and maps to 200 with Success=false; store failures
// map to 500 with a generic message.
func (s *Registration) Register(ctx context.Context, username, pass string) domain.RegisterResult {
	username = strings.TrimSpace(username)
	pass = strings.TrimSpace(pass)

	if username == "" || pass == "" {
		return reject(domain.MsgProvideBoth)
	}
	if password.HasLongDigitRun(pass) {
		return reject(domain.MsgTooManyDigits)
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return reject(domain.MsgUsernameTooLong)
	}

	hash := password.Hash(pass)

	userExists, err := s.store.UserExists(ctx, username)
	if err != nil {
		return s.fail("checking user existence", err)
	}

	existing, err := s.store.FindByPasswordHash(ctx, hash)
	if err != nil && !domain.IsNotFoundError(err) {
		return s.fail("looking up password hash", err)
	}
	if existing != nil {
		return duplicate(existing.Username, username)
	}

	rec, err := s.store.Insert(ctx, username, hash)
	if err != nil {
		// Lost the race between the existence check and the insert:
		// someone registered the same hash in between. Re-fetch the
		// owner and report the duplicate as usual.
		if err == domain.ErrDuplicateHash {
			winner, ferr := s.store.FindByPasswordHash(ctx, hash)
			if ferr != nil {
				return s.fail("resolving duplicate hash owner", ferr)
			}
			return duplicate(winner.Username, username)
		}
		return s.fail("inserting record", err)
	}

	// The record is durably committed; the audit append must not undo
	// that from the client's point of view.
	entry := audit.Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Username:  rec.Username,
		Password:  pass,
		Hash:      hash,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit entry", "username", rec.Username, "error", err)
	}

	message := domain.MsgWelcome
	if userExists {
		message = domain.CelebrationPool[s.pick(len(domain.CelebrationPool))]
	}
	return domain.RegisterResult{
		Success: true,
		Message: message,
		Status:  http.StatusOK,
	}
}

func (s *Registration) fail(op string, err error) domain.RegisterResult {
	s.logger.Error("registration failed", "op", op, "error", err)
	return domain.RegisterResult{
		Success: false,
		Message: domain.MsgInternal,
		Status:  http.StatusInternalServerError,
	}
}

func reject(message string) domain.RegisterResult {
	return domain.RegisterResult{
		Success: false,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func duplicate(owner, requester string) domain.RegisterResult {
	message := domain.MsgTakenBy(owner)
	if strings.EqualFold(owner, requester) {
		message = domain.MsgAlreadyTried
	}
	return domain.RegisterResult{
		Success: false,
		Message: message,
		Status:  http.StatusOK,
	}
}
