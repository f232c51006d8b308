package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickstorm/workspacectl/pkg/session"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func terminalSession(id string, status session.Status, completed time.Time) session.Session {
	return session.Session{
		ID:        id,
		Status:    status,
		Type:      session.TypeZip,
		FileCount: 4,
		TotalSize: 1024,
		CreatedAt: completed.Add(-time.Minute),
		UpdatedAt: completed,
	}
}

func TestRecordAndEntries(t *testing.T) {
	store := testStore(t)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(terminalSession("S1", session.StatusCompleted, base)))
	require.NoError(t, store.Record(terminalSession("S2", session.StatusError, base.Add(time.Hour))))

	entries, err := store.Entries(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, session.StatusError, entries[0].Status, "newest first")
	assert.Equal(t, session.StatusCompleted, entries[1].Status)
	assert.Equal(t, 4, entries[0].FileCount)
	assert.Equal(t, base.Add(time.Hour), entries[0].CompletedAt)
}

func TestRecordSkipsActiveAndPlaceholder(t *testing.T) {
	store := testStore(t)

	active := terminalSession("S1", session.StatusSyncing, time.Now())
	require.NoError(t, store.Record(active))

	placeholder := session.NewPlaceholder(session.PlaceholderZipID)
	require.NoError(t, store.Record(placeholder))

	entries, err := store.Entries(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordUpsertsByID(t *testing.T) {
	store := testStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	first := terminalSession("S1", session.StatusError, base)
	first.Error = "push rejected"
	require.NoError(t, store.Record(first))

	retried := terminalSession("S1", session.StatusCompleted, base.Add(time.Minute))
	require.NoError(t, store.Record(retried))

	entries, err := store.Entries(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, session.StatusCompleted, entries[0].Status)
	assert.Empty(t, entries[0].Error)
}

func TestEntriesLimit(t *testing.T) {
	store := testStore(t)
	base := time.Now().UTC()
	sessions := []session.Session{
		terminalSession("S1", session.StatusCompleted, base),
		terminalSession("S2", session.StatusCompleted, base.Add(time.Minute)),
		terminalSession("S3", session.StatusCompleted, base.Add(2*time.Minute)),
	}
	require.NoError(t, store.RecordSessions(sessions))

	entries, err := store.Entries(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
