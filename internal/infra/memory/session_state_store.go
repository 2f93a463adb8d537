package memory

import (
	"context"
	"sync"

	"gifts-assessment-service/internal/domain"
)

// SessionStateStore is an in-memory implementation of app.SessionStateStore.
type SessionStateStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewSessionStateStore() *SessionStateStore {
	return &SessionStateStore{values: make(map[string][]byte)}
}

func (s *SessionStateStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *SessionStateStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), data...)
	return nil
}

func (s *SessionStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
