package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanaw/internal/types"
)

type stubHistoryStore struct {
	rows       []types.StoredNotification
	listErr    error
	deleteErr  error
	deletedCut string
}

func (s *stubHistoryStore) ListBefore(_ context.Context, cutoff string) ([]types.StoredNotification, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []types.StoredNotification
	for _, r := range s.rows {
		if r.Timestamp < cutoff {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubHistoryStore) DeleteBefore(_ context.Context, cutoff string) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.deletedCut = cutoff
	var kept []types.StoredNotification
	var deleted int64
	for _, r := range s.rows {
		if r.Timestamp < cutoff {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return deleted, nil
}

type frozenClock struct {
	now time.Time
}

func (c frozenClock) Now() time.Time { return c.now }

func newTestArchiver(t *testing.T, store HistoryArchiveStore, now time.Time) (*Archiver, string) {
	t.Helper()
	dir := t.TempDir()
	a := NewArchiver(ArchiverConfig{
		History:   store,
		Dir:       dir,
		Retention: 30 * 24 * time.Hour,
		Clock:     frozenClock{now: now},
		Logger:    slog.New(slog.DiscardHandler),
	})
	return a, dir
}

func readArchive(t *testing.T, dir string) []types.StoredNotification {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	var rows []types.StoredNotification
	jd := json.NewDecoder(dec)
	for {
		var row types.StoredNotification
		if err := jd.Decode(&row); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		rows = append(rows, row)
	}
	return rows
}

func TestArchiver_RunOnce_ArchivesAndDeletesAgedRows(t *testing.T) {
	now := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	store := &stubHistoryStore{rows: []types.StoredNotification{
		{ID: 1, Title: "old", Body: "b", Timestamp: "2026-06-01T10:00:00Z"},
		{ID: 2, Title: "older", Body: "b", Timestamp: "2026-05-01T10:00:00Z"},
		{ID: 3, Title: "fresh", Body: "b", Timestamp: "2026-08-20T10:00:00Z"},
	}}
	a, dir := newTestArchiver(t, store, now)

	require.NoError(t, a.RunOnce(context.Background()))

	archived := readArchive(t, dir)
	require.Len(t, archived, 2)
	assert.Equal(t, "old", archived[0].Title)
	assert.Equal(t, "older", archived[1].Title)

	require.Len(t, store.rows, 1)
	assert.Equal(t, "fresh", store.rows[0].Title)
	assert.Equal(t, "2026-07-28T00:00:00Z", store.deletedCut)
}

func TestArchiver_RunOnce_NothingAgedIsNoop(t *testing.T) {
	now := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	store := &stubHistoryStore{rows: []types.StoredNotification{
		{ID: 1, Title: "fresh", Body: "b", Timestamp: "2026-08-20T10:00:00Z"},
	}}
	a, dir := newTestArchiver(t, store, now)

	require.NoError(t, a.RunOnce(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no archive file written for an empty pass")
	assert.Len(t, store.rows, 1)
}

func TestArchiver_RunOnce_DeleteFailureKeepsArchive(t *testing.T) {
	now := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	store := &stubHistoryStore{
		rows: []types.StoredNotification{
			{ID: 1, Title: "old", Body: "b", Timestamp: "2026-06-01T10:00:00Z"},
		},
		deleteErr: errors.New("connection refused"),
	}
	a, dir := newTestArchiver(t, store, now)

	err := a.RunOnce(context.Background())
	require.Error(t, err)

	// The archive file survives the failed delete so the pass can be
	// retried without data loss.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
}

func TestArchiver_RunOnce_ListFailure(t *testing.T) {
	now := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	store := &stubHistoryStore{listErr: errors.New("connection refused")}
	a, _ := newTestArchiver(t, store, now)

	require.Error(t, a.RunOnce(context.Background()))
}
