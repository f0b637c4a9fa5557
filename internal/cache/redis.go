package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// staleGraceMultiple keeps expired entries resident server-side long enough
// for stale-while-error to serve them after a failed recompute.
const staleGraceMultiple = 8

// RedisStore is a Store backed by Redis, for hosts that share one cache
// across processes. Values are JSON-marshalled, so anything cached through
// it must serialize cleanly — which the widget envelope contract already
// requires.
type RedisStore struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

type redisEntry struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	TTLMillis int64           `json:"ttl_ms"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: 3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if prefix == "" {
		prefix = "netinsights:"
	}
	return &RedisStore{client: client, prefix: prefix, ctx: ctx}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(key string) (Entry, bool) {
	raw, err := s.client.Get(s.ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return Entry{}, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis get failed")
		return Entry{}, false
	}

	var stored redisEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry dropped")
		s.Delete(key)
		return Entry{}, false
	}

	return Entry{
		Value:     stored.Value,
		CreatedAt: stored.CreatedAt,
		TTL:       time.Duration(stored.TTLMillis) * time.Millisecond,
	}, true
}

func (s *RedisStore) Set(key string, e Entry) {
	value, err := json.Marshal(e.Value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Unserializable value not cached")
		return
	}
	data, err := json.Marshal(redisEntry{
		Value:     value,
		CreatedAt: e.CreatedAt,
		TTLMillis: e.TTL.Milliseconds(),
	})
	if err != nil {
		return
	}

	if err := s.client.Set(s.ctx, s.prefix+key, data, e.TTL*staleGraceMultiple).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis set failed")
	}
}

func (s *RedisStore) Delete(key string) {
	if err := s.client.Del(s.ctx, s.prefix+key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis delete failed")
	}
}

func (s *RedisStore) Flush() {
	keys, err := s.client.Keys(s.ctx, s.prefix+"*").Result()
	if err != nil {
		log.Warn().Err(err).Msg("Redis flush scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(s.ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis flush failed")
	}
}
