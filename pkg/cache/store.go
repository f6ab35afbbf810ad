package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store reads and writes page entries by page URL.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry for pageURL, or ErrCacheMiss if there is none.
	Get(ctx context.Context, pageURL string) (*Entry, error)

	// Set stores entry for pageURL, replacing any previous entry.
	Set(ctx context.Context, pageURL string, entry *Entry) error
}

// RedisStore is a Store backed by Redis.
// Entries are JSON documents under StoreKey(pageURL) without a Redis TTL;
// freshness is decided by the reader.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Store on top of an existing Redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get retrieves the entry for a page URL.
func (s *RedisStore) Get(ctx context.Context, pageURL string) (*Entry, error) {
	data, err := s.redis.Get(ctx, StoreKey(pageURL)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return &entry, nil
}

// Set writes the entry for a page URL, overwriting unconditionally.
func (s *RedisStore) Set(ctx context.Context, pageURL string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, StoreKey(pageURL), data, 0).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheBytesWritten.Add(float64(len(data)))

	return nil
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
