// Package stats records crawl history for the prerender cache.
//
// Records are write-only: nothing in the cache reads them back, and a failed
// write never changes how a request is served.
package stats

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamKey is the Redis stream crawl records are appended to.
const StreamKey = "crawlStats"

// Outcome says whether a request was served from cache.
type Outcome string

const (
	// Hit means the page was served from cache.
	Hit Outcome = "Hit"

	// Miss means the page was rendered.
	Miss Outcome = "Miss"
)

// Record is one crawl history entry.
type Record struct {
	URL          string        `json:"url"`
	RequestedAt  time.Time     `json:"requestedAt"`
	Status       int           `json:"status"`
	CacheHit     Outcome       `json:"cacheHit"`
	ResponseTime time.Duration `json:"responseTime"`
}

// NewRecord builds a record for url at now. A zero status is reported as
// 504 Gateway Timeout, the status of a render that never produced one.
func NewRecord(url string, status int, outcome Outcome, elapsed time.Duration, now time.Time) Record {
	if status == 0 {
		status = http.StatusGatewayTimeout
	}
	return Record{
		URL:          url,
		RequestedAt:  now.UTC(),
		Status:       status,
		CacheHit:     outcome,
		ResponseTime: elapsed,
	}
}

// Values returns the record as stream fields. Times are RFC 3339 with
// milliseconds and the response time is in milliseconds.
func (r Record) Values() map[string]interface{} {
	return map[string]interface{}{
		"url":          r.URL,
		"requestedAt":  r.RequestedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"status":       r.Status,
		"cacheHit":     string(r.CacheHit),
		"responseTime": r.ResponseTime.Milliseconds(),
	}
}

// Recorder appends crawl records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// RedisRecorder appends records to a Redis stream.
type RedisRecorder struct {
	redis  *redis.Client
	stream string
	maxLen int64
}

// NewRedisRecorder creates a recorder writing to StreamKey.
// If maxLen is positive the stream is approximately trimmed to that length.
func NewRedisRecorder(redisClient *redis.Client, maxLen int64) *RedisRecorder {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisRecorder{
		redis:  redisClient,
		stream: StreamKey,
		maxLen: maxLen,
	}
}

// Record appends rec to the stream.
func (r *RedisRecorder) Record(ctx context.Context, rec Record) error {
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: rec.Values(),
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.redis.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", r.stream, err)
	}
	return nil
}

// Nop discards records.
type Nop struct{}

// Record does nothing.
func (Nop) Record(context.Context, Record) error { return nil }

var (
	_ Recorder = (*RedisRecorder)(nil)
	_ Recorder = Nop{}
)
