package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LayeredStore keeps recently used entries in process memory in front of
// another Store. Entries keep their original CachedAt, so the memory layer
// never makes a page look fresher than it is.
type LayeredStore struct {
	memory *gocache.Cache
	next   Store
}

// NewLayeredStore wraps next with an in-memory layer holding entries for ttl.
// The memory layer runs a janitor goroutine that purges expired entries every
// 2*ttl; it stops once the store is unreachable. Close drops the held entries.
func NewLayeredStore(next Store, ttl time.Duration) *LayeredStore {
	if next == nil {
		panic("next store cannot be nil")
	}
	return &LayeredStore{
		memory: gocache.New(ttl, 2*ttl),
		next:   next,
	}
}

// Get checks memory first, then the wrapped store.
func (s *LayeredStore) Get(ctx context.Context, pageURL string) (*Entry, error) {
	key := Key(pageURL)

	if val, found := s.memory.Get(key); found {
		entry := *val.(*Entry)
		return &entry, nil
	}

	entry, err := s.next.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	s.remember(key, entry)
	return entry, nil
}

// Set writes through to the wrapped store and then to memory.
func (s *LayeredStore) Set(ctx context.Context, pageURL string, entry *Entry) error {
	if err := s.next.Set(ctx, pageURL, entry); err != nil {
		return err
	}

	s.remember(Key(pageURL), entry)
	return nil
}

// Close drops every entry held in memory. The wrapped store is left open.
func (s *LayeredStore) Close() error {
	s.memory.Flush()
	return nil
}

func (s *LayeredStore) itemCount() int {
	return s.memory.ItemCount()
}

func (s *LayeredStore) remember(key string, entry *Entry) {
	cp := *entry
	s.memory.SetDefault(key, &cp)
}

var _ Store = (*LayeredStore)(nil)
