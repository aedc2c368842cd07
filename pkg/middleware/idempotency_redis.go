package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"dormly/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "laundry:idempotency:"

// RedisIdempotencyStore shares replayable responses between instances.
// Store failures are logged and treated as a miss.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func redisIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return idempotencyKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	data, err := s.client.Get(ctx, redisIdempotencyKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "error", err)
		}
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		s.log.Warn("Discarding unreadable idempotency entry", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode idempotency entry", "error", err)
		return
	}
	// SetNX keeps the first response if two retries race.
	if err := s.client.SetNX(ctx, redisIdempotencyKey(key), data, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotency entry", "error", err)
	}
}

// Stop is a no-op; the client is owned and closed by the caller.
func (s *RedisIdempotencyStore) Stop() {}
