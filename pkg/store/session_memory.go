package store

import (
	"sync"
	"time"

	"scanbrief/internal/util"
)

// MemorySessionStore keeps sessions in-process with TTL. Default strategy when
// neither Redis nor a JWT secret is configured.
type MemorySessionStore struct {
	mu   sync.Mutex
	sess map[string]memorySession
	ttl  time.Duration
}

type memorySession struct {
	userID  string
	expires time.Time
}

// NewMemorySessionStore builds an in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sess: make(map[string]memorySession),
		ttl:  ttl,
	}
}

// NewSession issues an opaque token for the user.
func (s *MemorySessionStore) NewSession(userID string) (string, error) {
	token := util.NewID()
	s.mu.Lock()
	s.sess[token] = memorySession{userID: userID, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

// GetUserIDByToken resolves a token, expiring stale entries lazily.
func (s *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sess[token]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expires) {
		delete(s.sess, token)
		return "", false, nil
	}
	return entry.userID, true, nil
}

// DeleteSession removes a token.
func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	delete(s.sess, token)
	s.mu.Unlock()
	return nil
}
