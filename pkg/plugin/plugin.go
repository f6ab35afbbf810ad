// Package plugin implements the prerender cache plugin.
//
// RequestReceived serves a page from Redis when a fresh copy exists;
// PageLoaded stores successfully rendered pages. The store is never allowed
// to fail or stall a render: read errors count as misses and writes run
// detached from the request, reporting failures only through logs and metrics.
package plugin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/johnnybui/prerender-redis-cache/pkg/cache"
	"github.com/johnnybui/prerender-redis-cache/pkg/logging"
	"github.com/johnnybui/prerender-redis-cache/pkg/prerender"
	"github.com/johnnybui/prerender-redis-cache/pkg/stats"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Plugin is a prerender plugin that holds resources.
type Plugin interface {
	prerender.Plugin

	// Close waits for pending cache writes and releases the store.
	Close(ctx context.Context) error
}

// Option customizes plugin construction.
type Option func(*options)

type options struct {
	redis    *redis.Client
	store    cache.Store
	recorder stats.Recorder
	logger   *zerolog.Logger
	now      func() time.Time
}

// WithRedis uses an existing Redis client instead of dialing Config.Address.
// The caller keeps ownership of the client.
func WithRedis(client *redis.Client) Option {
	return func(o *options) { o.redis = client }
}

// WithStore replaces the Redis page store.
func WithStore(store cache.Store) Option {
	return func(o *options) { o.store = store }
}

// WithRecorder replaces the Redis crawl stats recorder.
func WithRecorder(recorder stats.Recorder) Option {
	return func(o *options) { o.recorder = recorder }
}

// WithLogger sets the logger (default: component logger "prerender-cache").
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds the cache plugin. If the configuration is invalid it returns a
// *Disabled plugin carrying the reason, which passes every request through.
// Otherwise it returns a *Cache.
func New(cfg Config, opts ...Option) Plugin {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.NewLogger("prerender-cache")
	if o.logger != nil {
		logger = *o.logger
	}

	exp, err := cfg.Validate()
	if err != nil {
		logger.Error().Err(err).Msg("Prerender cache disabled: invalid configuration")
		return &Disabled{reason: err, logger: logger}
	}

	c := &Cache{
		store:      o.store,
		recorder:   o.recorder,
		expiration: exp,
		crawlStats: cfg.CrawlStats,
		syncWrites: cfg.SyncWrites,
		logger:     logger,
		now:        o.now,
	}

	needsRedis := c.store == nil || (c.crawlStats && c.recorder == nil)
	if needsRedis && o.redis == nil {
		c.owned = redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Username: cfg.Credentials.Username,
			Password: cfg.Credentials.Password,
			DB:       cfg.Credentials.DB,
		})
		o.redis = c.owned
	}

	if c.store == nil {
		c.store = cache.NewRedisStore(o.redis)
	}
	if cfg.LocalTTL > 0 {
		c.store = cache.NewLayeredStore(c.store, cfg.LocalTTL)
	}

	if c.recorder == nil {
		if c.crawlStats {
			c.recorder = stats.NewRedisRecorder(o.redis, cfg.StatsMaxLen)
		} else {
			c.recorder = stats.Nop{}
		}
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("expiration", exp.String()).
		Bool("crawl_stats", cfg.CrawlStats).
		Bool("sync_writes", cfg.SyncWrites).
		Dur("local_ttl", cfg.LocalTTL).
		Msg("Prerender cache enabled")

	return c
}

// Cache is the enabled plugin.
type Cache struct {
	store      cache.Store
	recorder   stats.Recorder
	expiration cache.Expiration
	crawlStats bool
	syncWrites bool
	logger     zerolog.Logger
	now        func() time.Time

	// owned is the Redis client created by New, closed by Close.
	owned   *redis.Client
	pending sync.WaitGroup
}

// RequestReceived serves a fresh cached page or lets the pipeline render it.
func (c *Cache) RequestReceived(ctx context.Context, req *prerender.Request, res prerender.ResponseWriter, next prerender.Next) {
	if !req.IsRead() {
		cache.CacheSkipped.WithLabelValues("method").Inc()
		next()
		return
	}

	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = c.now()
	}

	key := cache.Key(req.URL)

	entry, err := c.store.Get(ctx, req.URL)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Debug().Str("key", key).Msg("Cache not found")
			cache.CacheMisses.WithLabelValues("not_found").Inc()
		} else {
			c.logger.Warn().Err(err).Str("key", key).Msg("Error getting cache")
			cache.CacheMisses.WithLabelValues("error").Inc()
		}
		next()
		return
	}

	if c.expiration.Expired(entry.CachedAt, c.now()) {
		c.logger.Debug().
			Str("key", key).
			Time("cached_at", entry.CachedAt).
			Msg("Cache is expired")
		cache.CacheMisses.WithLabelValues("expired").Inc()
		next()
		return
	}

	c.logger.Debug().
		Str("key", key).
		Time("cached_at", entry.CachedAt).
		Dur("age", entry.Age(c.now())).
		Msg("Load from cache")
	cache.CacheHits.Inc()

	if c.crawlStats {
		c.record(ctx, stats.NewRecord(req.URL, http.StatusOK, stats.Hit, req.Elapsed(), c.now()))
	}

	res.Send(http.StatusOK, []byte(entry.Content))
}

// PageLoaded stores a successfully rendered page and always continues.
// Only GET renders are stored.
func (c *Cache) PageLoaded(ctx context.Context, req *prerender.Request, res prerender.ResponseWriter, next prerender.Next) {
	if !req.IsRead() {
		cache.CacheSkipped.WithLabelValues("method").Inc()
		next()
		return
	}

	if req.StatusCode != http.StatusOK {
		c.logger.Debug().
			Str("url", req.URL).
			Int("status", req.StatusCode).
			Msg("Not caching unsuccessful render")
		cache.CacheSkipped.WithLabelValues("status").Inc()

		if c.crawlStats {
			c.record(ctx, stats.NewRecord(req.URL, req.StatusCode, stats.Miss, req.Elapsed(), c.now()))
		}
		next()
		return
	}

	pageURL := req.URL
	entry := cache.NewEntry(pageURL, req.Content, c.now())
	write := func(ctx context.Context) {
		c.write(ctx, pageURL, entry)
	}

	if c.syncWrites {
		write(ctx)
	} else {
		c.detach(ctx, write)
	}

	if c.crawlStats {
		c.record(ctx, stats.NewRecord(pageURL, req.StatusCode, stats.Miss, req.Elapsed(), c.now()))
	}

	next()
}

// Close waits for pending writes, then closes the store if it holds
// resources and the Redis client if New created it.
func (c *Cache) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var errs []error
	if closer, ok := c.store.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if c.owned != nil {
		errs = append(errs, c.owned.Close())
	}
	return errors.Join(errs...)
}

// Expiration returns the configured expiration window.
func (c *Cache) Expiration() cache.Expiration {
	return c.expiration
}

func (c *Cache) write(ctx context.Context, pageURL string, entry *cache.Entry) {
	key := cache.Key(pageURL)

	if err := c.store.Set(ctx, pageURL, entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Error setting cache")
		cache.CacheWrites.WithLabelValues("error").Inc()
		return
	}

	c.logger.Debug().Str("key", key).Msg("Set new cache")
	cache.CacheWrites.WithLabelValues("ok").Inc()
}

func (c *Cache) record(ctx context.Context, rec stats.Record) {
	c.detach(ctx, func(ctx context.Context) {
		if err := c.recorder.Record(ctx, rec); err != nil {
			c.logger.Warn().Err(err).Str("url", rec.URL).Msg("Error recording crawl stats")
		}
	})
}

// detach runs fn in its own goroutine with a context that outlives the request.
func (c *Cache) detach(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		fn(ctx)
	}()
}

// Disabled is the plugin built from an invalid configuration.
// Its hooks only continue the pipeline; it never touches the store.
type Disabled struct {
	reason error
	logger zerolog.Logger
}

// Reason returns the configuration error that disabled the cache.
func (d *Disabled) Reason() error {
	return d.reason
}

// RequestReceived continues the pipeline.
func (d *Disabled) RequestReceived(_ context.Context, _ *prerender.Request, _ prerender.ResponseWriter, next prerender.Next) {
	d.pass()
	next()
}

// PageLoaded continues the pipeline.
func (d *Disabled) PageLoaded(_ context.Context, _ *prerender.Request, _ prerender.ResponseWriter, next prerender.Next) {
	d.pass()
	next()
}

// Close does nothing.
func (d *Disabled) Close(context.Context) error {
	return nil
}

func (d *Disabled) pass() {
	d.logger.Debug().Err(d.reason).Msg("Prerender cache disabled, passing through")
	cache.CacheSkipped.WithLabelValues("disabled").Inc()
}

var (
	_ Plugin = (*Cache)(nil)
	_ Plugin = (*Disabled)(nil)
)
