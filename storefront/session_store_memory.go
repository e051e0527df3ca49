package storefront

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// MemorySessionStore is a thread-safe in-memory SessionStore.
// Sessions are lost on server restart.
type MemorySessionStore struct {
	mu          sync.RWMutex
	data        map[string]Session
	idleTimeout time.Duration
	stopOnce    sync.Once
	stopCh      chan struct{}
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an in-memory session store and starts a
// background sweep of expired sessions. Call Close to stop it.
// idleTimeout of 0 disables idle timeout checking.
func NewMemorySessionStore(idleTimeout time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		data:        make(map[string]Session),
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Close stops the background cleanup goroutine.
func (s *MemorySessionStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *MemorySessionStore) Get(token string) (Session, bool) {
	s.mu.RLock()
	session, ok := s.data[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if s.expired(session, time.Now()) {
		s.Delete(token)
		return Session{}, false
	}
	return session.clone(), true
}

func (s *MemorySessionStore) Put(token string, session Session) {
	s.mu.Lock()
	s.data[token] = session.clone()
	s.mu.Unlock()
}

func (s *MemorySessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, including expired ones not
// yet swept.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemorySessionStore) expired(session Session, now time.Time) bool {
	if now.After(session.ExpiresAt) {
		return true
	}
	return s.idleTimeout > 0 && now.Sub(session.LastAccessedAt) > s.idleTimeout
}

func (s *MemorySessionStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *MemorySessionStore) sweepExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.data {
		if s.expired(session, now) {
			delete(s.data, token)
		}
	}
}
