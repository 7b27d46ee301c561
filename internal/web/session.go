package web

import (
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/corrlab/internal/analysis"
)

// Session is the private scratch state of one browser. Nothing in it outlives
// the process.
type Session struct {
	ID        string
	Dataset   *analysis.Dataset
	Image     image.Image
	ImageName string
	lastSeen  time.Time
}

// Store keeps sessions in memory and evicts idle ones lazily.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

// NewStore returns an empty store. ttl <= 0 disables eviction.
func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, sessions: map[string]*Session{}}
}

// Get returns the session for id, creating a fresh one (with a new id) when
// id is unknown or expired. The bool reports whether a new session was made.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.lastSeen = now
		return sess, false
	}
	sess := &Session{ID: uuid.NewString(), lastSeen: now}
	s.sessions[sess.ID] = sess
	return sess, true
}

// Update runs fn with the session locked, so a handler's read-modify-write
// of the session is atomic with respect to other requests.
func (s *Store) Update(id string, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		fn(sess)
	}
}

// Snapshot returns a copy of the session fields.
func (s *Store) Snapshot(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) evictLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
