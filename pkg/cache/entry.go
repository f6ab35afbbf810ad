package cache

import (
	"time"
)

// Entry is a rendered page stored in the cache.
type Entry struct {
	// Content is the rendered HTML
	Content string `json:"content"`

	// CachedAt is when the page was written to the cache
	CachedAt time.Time `json:"cachedAt"`

	// URL is the original, unsanitized page URL
	URL string `json:"url,omitempty"`
}

// NewEntry creates an entry for content rendered from url, stamped with now.
func NewEntry(url string, content []byte, now time.Time) *Entry {
	return &Entry{
		Content:  string(content),
		CachedAt: now.UTC(),
		URL:      url,
	}
}

// Age returns how long ago the entry was written, relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}
