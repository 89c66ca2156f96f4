// internal/subscription/redisstore.go
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
	"menubot/internal/common/metrics"
)

// redisKey holds the whole mapping as one JSON value, mirroring the
// single-file layout of the file backend.
const redisKey = "menubot:subscriptions"

// RedisStore keeps the mapping in memory and rewrites one redis value on
// every mutation.
type RedisStore struct {
	client *redis.Client
	logger logger.Logger

	mu   sync.Mutex
	subs map[string]Subscription
}

// NewRedisStore loads the mapping from redis, starting empty when the key
// is absent.
func NewRedisStore(ctx context.Context, client *redis.Client, log logger.Logger) (*RedisStore, error) {
	s := &RedisStore{
		client: client,
		logger: log,
		subs:   make(map[string]Subscription),
	}

	data, err := client.Get(ctx, redisKey).Bytes()
	if err == redis.Nil {
		log.Info("no subscriptions in redis, starting empty", nil)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions from redis: %w", err)
	}

	if err := validateSubscriptionsJSON(data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.subs); err != nil {
		return nil, fmt.Errorf("failed to parse subscriptions from redis: %w", err)
	}

	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	log.Info("subscriptions loaded", map[string]interface{}{
		"backend": "redis",
		"count":   len(s.subs),
	})

	return s, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, recipient string, at TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[recipient] = Subscription{NotifyAt: at}
	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	return s.persistLocked(ctx)
}

func (s *RedisStore) Unsubscribe(ctx context.Context, recipient string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[recipient]; !ok {
		return false, nil
	}
	delete(s.subs, recipient)
	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	return true, s.persistLocked(ctx)
}

func (s *RedisStore) Get(ctx context.Context, recipient string) (Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[recipient]
	if ok && sub.LastNotified != nil {
		d := *sub.LastNotified
		sub.LastNotified = &d
	}
	return sub, ok, nil
}

func (s *RedisStore) All(ctx context.Context) (map[string]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySubscriptions(s.subs), nil
}

func (s *RedisStore) MarkNotified(ctx context.Context, recipients []string, date string) error {
	if len(recipients) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range recipients {
		sub, ok := s.subs[r]
		if !ok {
			continue
		}
		d := date
		sub.LastNotified = &d
		s.subs[r] = sub
	}
	return s.persistLocked(ctx)
}

func (s *RedisStore) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.subs)
	if err != nil {
		return apperrors.NewPersistenceError("marshal", err)
	}
	if err := s.client.Set(ctx, redisKey, data, 0).Err(); err != nil {
		return apperrors.NewPersistenceError("redis set", err)
	}
	return nil
}
