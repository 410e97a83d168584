package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_InitializesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secure", "log.json")

	_, err := New(path, testLogger())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestNew_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	existing := `[{"id":"x","timestamp":"2026-01-02T15:04:05Z","username":"alice","password":"p","hash":"h"}]`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o600))

	_, err := New(path, testLogger())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, existing, string(data))
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secure", "log.json")
	log, err := New(path, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	first := Entry{
		ID:        "id-1",
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Username:  "alice",
		Password:  "goodpass",
		Hash:      "deadbeef",
	}
	require.NoError(t, log.Append(ctx, first))

	second := first
	second.ID = "id-2"
	second.Username = "bob"
	require.NoError(t, log.Append(ctx, second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0])
	assert.Equal(t, second, entries[1])
}

func TestAppend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	log, err := New(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	err = log.Append(context.Background(), Entry{ID: "id-1"})
	assert.Error(t, err)
}

func TestAppend_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	log, err := New(path, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, log.Append(ctx, Entry{ID: "id-1"}))
}
