package sessions

import (
	"context"
	"sync"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

// MemoryStore keeps sessions in-process. Used by tests, the simulator, and
// as the fallback when Redis is disabled.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.Session)}
}

func (s *MemoryStore) Get(ctx context.Context, userKey string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userKey]
	if !ok {
		return nil, nil
	}
	out := sess
	return &out, nil
}

func (s *MemoryStore) Put(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserKey] = *sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userKey)
	return nil
}
