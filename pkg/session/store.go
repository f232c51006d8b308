package session

import "sync"

// maxRecentSessions bounds the recency-ordered list kept for display.
const maxRecentSessions = 10

// Store holds the last known canonical list of sessions and derives
// the upload lock from it. The lock is never stored independently: it
// is true exactly when some session has a non-terminal status.
//
// Store is the sole owner of the in-memory session list; collaborators
// request mutations through it and must not keep private copies that
// outlive a refresh. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	seq       uint64
	appliedAt uint64
	sessions  []Session
	listeners []func()
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers a callback invoked after every mutation so that
// dependent views (sessions list, lock banner) can re-render. The
// callback runs on the mutating goroutine, outside the store lock, so
// it may read the store.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// NextSeq issues a refresh sequence number. Callers obtain one before
// a status request and pass it to Replace so that a slow request
// resolving after a newer one is discarded instead of clobbering
// fresher state.
func (s *Store) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Replace atomically replaces the known session set with the
// authoritative server list. Placeholders are superseded, never
// merged. It reports whether the replacement was applied; a sequence
// older than one already applied leaves the store untouched.
func (s *Store) Replace(seq uint64, sessions []Session) bool {
	s.mu.Lock()
	if seq < s.appliedAt {
		s.mu.Unlock()
		return false
	}
	s.appliedAt = seq
	s.sessions = make([]Session, len(sessions))
	copy(s.sessions, sessions)
	listeners := s.listeners
	s.mu.Unlock()

	notifyAll(listeners)
	return true
}

// UpsertFront inserts the session at the front of the recency-ordered
// list, deduplicating by session ID and keeping at most ten entries.
// Sessions without an ID are ignored.
func (s *Store) UpsertFront(sess Session) {
	if sess.ID == "" {
		return
	}
	s.mu.Lock()
	next := make([]Session, 0, len(s.sessions)+1)
	next = append(next, sess)
	for _, existing := range s.sessions {
		if existing.ID != sess.ID {
			next = append(next, existing)
		}
	}
	if len(next) > maxRecentSessions {
		next = next[:maxRecentSessions]
	}
	s.sessions = next
	listeners := s.listeners
	s.mu.Unlock()

	notifyAll(listeners)
}

// SetPlaceholder registers the local in-flight placeholder, locking
// uploads until it is cleared or superseded by an authoritative
// refresh.
func (s *Store) SetPlaceholder(id string) {
	s.UpsertFront(NewPlaceholder(id))
}

// ClearPlaceholders removes locally-synthesized entries.
func (s *Store) ClearPlaceholders() {
	s.mu.Lock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if !sess.Placeholder {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	listeners := s.listeners
	s.mu.Unlock()

	notifyAll(listeners)
}

// Sessions returns a copy of the known session list, most recent
// first.
func (s *Store) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Active returns the subset of sessions with a non-terminal status.
func (s *Store) Active() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []Session
	for _, sess := range s.sessions {
		if sess.Active() {
			active = append(active, sess)
		}
	}
	return active
}

// Locked reports whether an upload lock is held: true exactly when the
// active subset is non-empty.
func (s *Store) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.Active() {
			return true
		}
	}
	return false
}

// Get looks up a session by ID.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return Session{}, false
}

func notifyAll(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
