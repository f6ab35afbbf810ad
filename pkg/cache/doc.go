// Package cache stores rendered pages in Redis for the prerender cache plugin.
//
// Features:
//
// - Store-safe key derivation from page URLs (percent-encoding, periods replaced)
// - Entries stamped with their write time; freshness is decided at read time
// - Expiration windows configured as "<N>h" or "<N>d", or never
// - Optional in-process layer in front of Redis
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	store := cache.NewRedisStore(redisClient)
//
//	exp, err := cache.ParseExpiration("1d")
//	if err != nil {
//		return err
//	}
//
//	entry, err := store.Get(ctx, "https://example.com/")
//	if err == cache.ErrCacheMiss || (err == nil && exp.Expired(entry.CachedAt, time.Now())) {
//		// Render the page, then store it
//		err = store.Set(ctx, "https://example.com/", cache.NewEntry(url, html, time.Now()))
//	}
//
// # Keys
//
// Page URLs are stored under "cache:" + Key(url). Key percent-encodes the URL
// as a URI component and replaces "." with "_":
//
//	http://a.com/x.y -> cache:http%3A%2F%2Fa_com%2Fx_y
//
// Entries are never deleted or given a Redis TTL. Stale entries stay in Redis
// until overwritten by a fresh render.
//
// # Metrics
//
//   - prerender_cache_hits_total - Pages served from cache
//   - prerender_cache_misses_total{reason} - Lookups that fell through to rendering
//   - prerender_cache_writes_total{result} - Page writes
//   - prerender_cache_skipped_total{reason} - Requests the cache did not handle
//   - prerender_cache_written_bytes_total - Encoded bytes written
//   - prerender_cache_errors_total{operation} - Store operation errors
package cache
