package store

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheItem wraps a snapshot and its expiry.
type cacheItem struct {
	snap      Snapshot
	expiresAt time.Time
}

// CachedStore is a read-through LRU cache in front of another Store. Saves
// go straight to the backend and refresh the cached entry on success.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, cacheItem]
	ttl   time.Duration
}

func NewCachedStore(next Store, size int, ttl time.Duration) (*CachedStore, error) {
	if size <= 0 {
		size = len(AllCollections)
	}
	c, err := lru.New[string, cacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &CachedStore{next: next, cache: c, ttl: ttl}, nil
}

func (s *CachedStore) set(name string, snap Snapshot) {
	s.cache.Add(name, cacheItem{snap: snap, expiresAt: time.Now().Add(s.ttl)})
}

// get returns the cached snapshot, or false if it is missing or expired.
func (s *CachedStore) get(name string) (Snapshot, bool) {
	item, ok := s.cache.Get(name)
	if !ok {
		return Snapshot{}, false
	}
	if time.Now().After(item.expiresAt) {
		s.cache.Remove(name)
		return Snapshot{}, false
	}
	return item.snap, true
}

// Invalidate drops the cached copy of a collection.
func (s *CachedStore) Invalidate(name string) {
	s.cache.Remove(name)
}

func (s *CachedStore) Load(ctx context.Context, name string) (Snapshot, error) {
	if snap, ok := s.get(name); ok {
		return snap, nil
	}
	snap, err := s.next.Load(ctx, name)
	if err != nil {
		return Snapshot{}, err
	}
	s.set(name, snap)
	return snap, nil
}

func (s *CachedStore) Save(ctx context.Context, name string, data []byte, expected uint64) (uint64, error) {
	version, err := s.next.Save(ctx, name, data, expected)
	if err != nil {
		// A conflict means the cached copy is stale; the retry must hit the backend.
		s.Invalidate(name)
		return 0, err
	}
	s.set(name, Snapshot{Data: data, Version: version})
	return version, nil
}
