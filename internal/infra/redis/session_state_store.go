package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gifts-assessment-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStateStore keeps assessment progress in Redis so a websocket client can
// resume on another instance. Keys are namespaced by assessment session id:
// gifts:state:{namespace}:{key}. Entries expire after ttl.
type SessionStateStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewSessionStateStore(client *redis.Client, namespace string, ttl time.Duration) *SessionStateStore {
	return &SessionStateStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *SessionStateStore) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get state: %w", err)
	}
	return raw, nil
}

func (s *SessionStateStore) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

func (s *SessionStateStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *SessionStateStore) key(key string) string {
	return "gifts:state:" + s.namespace + ":" + key
}
