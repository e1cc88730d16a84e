package ballot

import (
	"sync"
	"time"
)

// SessionStore keeps voting sessions in memory until they expire.
// A session is tied to the token issued at login, so losing the store on
// restart only forces voters to log in again.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	session *Session
	expires time.Time
}

// NewSessionStore creates a store whose sessions live for ttl after their last use.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]sessionEntry),
	}
}

// Put stores s, replacing any session with the same ID.
func (st *SessionStore) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep()
	st.sessions[s.ID] = sessionEntry{session: s, expires: st.now().Add(st.ttl)}
}

// Get returns the session with id and extends its lifetime.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	now := st.now()
	if now.After(e.expires) {
		delete(st.sessions, id)
		return nil, false
	}
	e.expires = now.Add(st.ttl)
	st.sessions[id] = e
	return e.session, true
}

// Delete forgets the session with id.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep()
	return len(st.sessions)
}

// sweep must be called with st.mu held.
func (st *SessionStore) sweep() {
	now := st.now()
	for id, e := range st.sessions {
		if now.After(e.expires) {
			delete(st.sessions, id)
		}
	}
}
