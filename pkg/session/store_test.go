package session

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	storeTestSeed  = 42
	storeTestRuns  = 200
	storeTestMaxN  = 8
	storeTestSess1 = "sess-1"
	storeTestSess2 = "sess-2"
)

var allStatuses = []Status{
	StatusPending, StatusInProgress, StatusExtracted, StatusReady,
	StatusSyncing, StatusCompleted, StatusError,
}

func testSession(id string, status Status) Session {
	now := time.Now().UTC()
	return Session{
		ID:        id,
		Status:    status,
		Type:      TypeZip,
		FileCount: 1,
		TotalSize: 128,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// The lock is derived, never stored: for any session set, Locked()
// must agree with "some session has a status outside {completed,
// error}".
func TestStore_LockInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(storeTestSeed))

	for run := 0; run < storeTestRuns; run++ {
		store := NewStore()
		n := rng.Intn(storeTestMaxN)
		sessions := make([]Session, 0, n)
		wantLocked := false
		for i := 0; i < n; i++ {
			status := allStatuses[rng.Intn(len(allStatuses))]
			if !status.Terminal() {
				wantLocked = true
			}
			sessions = append(sessions, testSession(fmt.Sprintf("s-%d-%d", run, i), status))
		}

		require.True(t, store.Replace(store.NextSeq(), sessions))
		assert.Equal(t, wantLocked, store.Locked(), "run %d sessions %v", run, sessions)
		assert.Equal(t, wantLocked, len(store.Active()) > 0)
	}
}

func TestStore_ReplaceDiscardsStaleSequence(t *testing.T) {
	store := NewStore()

	staleSeq := store.NextSeq()
	freshSeq := store.NextSeq()

	require.True(t, store.Replace(freshSeq, []Session{testSession(storeTestSess1, StatusCompleted)}))
	assert.False(t, store.Replace(staleSeq, []Session{testSession(storeTestSess2, StatusSyncing)}),
		"a stale refresh must not overwrite a newer one")

	assert.False(t, store.Locked())
	_, ok := store.Get(storeTestSess2)
	assert.False(t, ok)
}

func TestStore_ReplaceSupersedesPlaceholder(t *testing.T) {
	store := NewStore()
	store.SetPlaceholder(PlaceholderZipID)
	require.True(t, store.Locked())

	require.True(t, store.Replace(store.NextSeq(), []Session{testSession(storeTestSess1, StatusExtracted)}))

	_, ok := store.Get(PlaceholderZipID)
	assert.False(t, ok, "authoritative refresh must fully replace the placeholder")
	got, ok := store.Get(storeTestSess1)
	require.True(t, ok)
	assert.False(t, got.Placeholder)
}

func TestStore_UpsertFrontDeduplicatesAndBounds(t *testing.T) {
	store := NewStore()

	for i := 0; i < maxRecentSessions+5; i++ {
		store.UpsertFront(testSession(fmt.Sprintf("s-%d", i), StatusCompleted))
	}
	sessions := store.Sessions()
	require.Len(t, sessions, maxRecentSessions)
	assert.Equal(t, "s-14", sessions[0].ID)

	// Re-upserting an existing session moves it to the front without
	// growing the list.
	store.UpsertFront(testSession("s-10", StatusCompleted))
	sessions = store.Sessions()
	require.Len(t, sessions, maxRecentSessions)
	assert.Equal(t, "s-10", sessions[0].ID)
}

func TestStore_UpsertFrontIgnoresEmptyID(t *testing.T) {
	store := NewStore()
	store.UpsertFront(Session{Status: StatusPending})
	assert.Empty(t, store.Sessions())
}

func TestStore_ClearPlaceholders(t *testing.T) {
	store := NewStore()
	store.UpsertFront(testSession(storeTestSess1, StatusCompleted))
	store.SetPlaceholder(PlaceholderFileID)
	require.True(t, store.Locked())

	store.ClearPlaceholders()

	assert.False(t, store.Locked())
	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, storeTestSess1, sessions[0].ID)
}

func TestStore_SubscribersFireOnEveryMutation(t *testing.T) {
	store := NewStore()
	var fired int
	store.Subscribe(func() { fired++ })

	store.Replace(store.NextSeq(), nil)
	store.UpsertFront(testSession(storeTestSess1, StatusPending))
	store.ClearPlaceholders()

	assert.Equal(t, 3, fired)
}

func TestSession_Affordances(t *testing.T) {
	tests := []struct {
		status      Status
		finalizable bool
		cancelable  bool
	}{
		{StatusPending, false, true},
		{StatusInProgress, true, true},
		{StatusExtracted, true, true},
		{StatusReady, true, true},
		{StatusSyncing, false, false},
		{StatusCompleted, false, false},
		{StatusError, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			sess := testSession(storeTestSess1, tt.status)
			assert.Equal(t, tt.finalizable, sess.Finalizable())
			assert.Equal(t, tt.cancelable, sess.Cancelable())
		})
	}
}
