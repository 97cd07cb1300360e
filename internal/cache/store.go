package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-live-api/internal/observability"
)

// ErrCacheMiss is returned by Get when the key is absent or the cache is
// unavailable. Absence is advisory: every caller has a durable-store fallback
// and must never surface a miss to its own caller as an error.
var ErrCacheMiss = errors.New("cache miss")

// Store is a best-effort JSON cache over Redis. A nil client is a valid
// configuration in which every read misses and every write is a no-op, so the
// service keeps working with the cache entirely absent.
type Store struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewStore builds a cache store. client may be nil.
func NewStore(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With().Str("component", "cache_store").Logger(),
	}
}

// Get reads the key and unmarshals its JSON value into dest. It returns
// ErrCacheMiss for absent keys, unreachable cache, and undecodable values;
// the underlying cause is logged, never propagated.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	if s.client == nil {
		observability.CacheMisses().Inc()
		return ErrCacheMiss
	}

	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, degrading to miss")
		}
		observability.CacheMisses().Inc()
		return ErrCacheMiss
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cached value undecodable, degrading to miss")
		observability.CacheMisses().Inc()
		return ErrCacheMiss
	}

	observability.CacheHits().Inc()
	return nil
}

// Set stores the JSON-encoded value under key with the given TTL. Failures
// are logged and swallowed.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.client == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to marshal value for cache")
		return
	}

	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Delete removes the key. Failures are logged and swallowed.
func (s *Store) Delete(ctx context.Context, key string) {
	if s.client == nil {
		return
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}
