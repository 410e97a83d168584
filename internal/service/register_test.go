package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/password-club/internal/audit"
	"github.com/password-club/internal/domain"
	"github.com/password-club/internal/password"
)

// -------- test fakes --------

type fakeStore struct {
	byHash map[string]*domain.UserRecord

	existsErr    error
	findErr      error
	insertErr    error
	missFindOnce bool

	queries  int
	nextID   int64
	topRows  []domain.LeaderboardRow
	topErr   error
	topCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byHash: make(map[string]*domain.UserRecord)}
}

func (f *fakeStore) UserExists(ctx context.Context, username string) (bool, error) {
	f.queries++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, rec := range f.byHash {
		if strings.EqualFold(rec.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindByPasswordHash(ctx context.Context, hash string) (*domain.UserRecord, error) {
	f.queries++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.missFindOnce {
		f.missFindOnce = false
		return nil, domain.ErrNotFound
	}
	rec, ok := f.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) Insert(ctx context.Context, username, hash string) (*domain.UserRecord, error) {
	f.queries++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if _, ok := f.byHash[hash]; ok {
		return nil, domain.ErrDuplicateHash
	}
	f.nextID++
	rec := &domain.UserRecord{ID: f.nextID, Username: username, PasswordHash: hash}
	f.byHash[hash] = rec
	return rec, nil
}

func (f *fakeStore) TopUsers(ctx context.Context, limit int) ([]domain.LeaderboardRow, error) {
	f.topCalls++
	if f.topErr != nil {
		return nil, f.topErr
	}
	return f.topRows, nil
}

type fakeAudit struct {
	entries []audit.Entry
	err     error
}

func (f *fakeAudit) Append(ctx context.Context, entry audit.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(st *fakeStore, sink *fakeAudit, pick PickFunc) *Registration {
	return NewRegistration(st, sink, pick, testLogger())
}

// -------- tests --------

func TestRegister_FirstTime(t *testing.T) {
	st := newFakeStore()
	sink := &fakeAudit{}
	p := newPipeline(st, sink, nil)

	res := p.Register(context.Background(), "alice", "goodpass")

	assert.True(t, res.Success)
	assert.Equal(t, domain.MsgWelcome, res.Message)
	assert.Equal(t, http.StatusOK, res.Status)

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, "alice", entry.Username)
	assert.Equal(t, "goodpass", entry.Password)
	assert.Equal(t, password.Hash("goodpass"), entry.Hash)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestRegister_ValidationRejections(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		message  string
	}{
		{"empty username", "", "goodpass", domain.MsgProvideBoth},
		{"empty password", "alice", "", domain.MsgProvideBoth},
		{"whitespace only password", "alice", "   ", domain.MsgProvideBoth},
		{"whitespace only username", "  \t ", "goodpass", domain.MsgProvideBoth},
		{"digit run", "alice", "aaaa11111111111bbbb", domain.MsgTooManyDigits},
		{"username too long", strings.Repeat("a", 51), "goodpass", domain.MsgUsernameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			p := newPipeline(st, &fakeAudit{}, nil)

			res := p.Register(context.Background(), tt.username, tt.password)

			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, http.StatusBadRequest, res.Status)
			assert.Zero(t, st.queries, "validation failures must not touch the store")
		})
	}
}

func TestRegister_UsernameBoundary(t *testing.T) {
	st := newFakeStore()
	p := newPipeline(st, &fakeAudit{}, nil)

	res := p.Register(context.Background(), strings.Repeat("a", 50), "goodpass")
	assert.True(t, res.Success)
}

func TestRegister_TrimsAndKeepsOriginalCase(t *testing.T) {
	st := newFakeStore()
	p := newPipeline(st, &fakeAudit{}, nil)

	res := p.Register(context.Background(), "  Alice  ", "goodpass")
	require.True(t, res.Success)

	rec := st.byHash[password.Hash("goodpass")]
	require.NotNil(t, rec)
	assert.Equal(t, "Alice", rec.Username)
}

func TestRegister_AlreadyTried(t *testing.T) {
	st := newFakeStore()
	p := newPipeline(st, &fakeAudit{}, nil)
	ctx := context.Background()

	require.True(t, p.Register(ctx, "alice", "goodpass").Success)

	res := p.Register(ctx, "alice", "goodpass")
	assert.False(t, res.Success)
	assert.Equal(t, domain.MsgAlreadyTried, res.Message)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestRegister_AlreadyTried_CaseInsensitiveOwner(t *testing.T) {
	st := newFakeStore()
	p := newPipeline(st, &fakeAudit{}, nil)
	ctx := context.Background()

	require.True(t, p.Register(ctx, "Alice", "goodpass").Success)

	res := p.Register(ctx, "alice", "goodpass")
	assert.False(t, res.Success)
	assert.Equal(t, domain.MsgAlreadyTried, res.Message)
}

func TestRegister_TakenByOtherUser(t *testing.T) {
	st := newFakeStore()
	p := newPipeline(st, &fakeAudit{}, nil)
	ctx := context.Background()

	require.True(t, p.Register(ctx, "alice", "goodpass").Success)

	res := p.Register(ctx, "bob", "goodpass")
	assert.False(t, res.Success)
	assert.Equal(t, `This password is already taken by "alice" 😭`, res.Message)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestRegister_SecondPasswordPicksPooledMessage(t *testing.T) {
	st := newFakeStore()
	p := newPipeline(st, &fakeAudit{}, func(n int) int { return 2 })
	ctx := context.Background()

	require.True(t, p.Register(ctx, "alice", "goodpass").Success)

	res := p.Register(ctx, "alice", "secondpass")
	assert.True(t, res.Success)
	assert.Equal(t, domain.CelebrationPool[2], res.Message)
}

func TestRegister_InsertRaceLost(t *testing.T) {
	st := newFakeStore()
	p := newPipeline(st, &fakeAudit{}, nil)
	ctx := context.Background()

	require.True(t, p.Register(ctx, "alice", "goodpass").Success)

	// Simulate the race window: bob's lookup misses, his insert then
	// trips the uniqueness constraint and the owner is re-fetched.
	st.missFindOnce = true
	res := p.Register(ctx, "bob", "goodpass")
	assert.False(t, res.Success)
	assert.Equal(t, domain.MsgTakenBy("alice"), res.Message)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestRegister_StoreFailure(t *testing.T) {
	st := newFakeStore()
	st.existsErr = errors.New("database is locked")
	p := newPipeline(st, &fakeAudit{}, nil)

	res := p.Register(context.Background(), "alice", "goodpass")
	assert.False(t, res.Success)
	assert.Equal(t, domain.MsgInternal, res.Message)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
}

func TestRegister_AuditFailureSwallowed(t *testing.T) {
	st := newFakeStore()
	sink := &fakeAudit{err: errors.New("read-only filesystem")}
	p := newPipeline(st, sink, nil)

	res := p.Register(context.Background(), "alice", "goodpass")
	assert.True(t, res.Success, "audit failure must not affect the response")
	assert.Equal(t, domain.MsgWelcome, res.Message)

	// The registration itself was committed.
	rec, err := st.FindByPasswordHash(context.Background(), password.Hash("goodpass"))
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
}
