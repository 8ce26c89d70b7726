package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CacheStore holds opaque payloads grouped into namespaces so a whole
// namespace can be dropped at once.
type CacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopCacheStore struct{}

func NewNoopCacheStore() *NoopCacheStore { return &NoopCacheStore{} }

func (NoopCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopCacheStore) Set(context.Context, string, string, []byte, time.Duration) error { return nil }

func (NoopCacheStore) Delete(context.Context, string, string) error { return nil }

func (NoopCacheStore) InvalidateNamespace(context.Context, string) error { return nil }

type cacheEntry struct {
	payload   []byte
	writtenAt time.Time
	expiresAt time.Time
}

type InMemoryCacheStore struct {
	mu    sync.RWMutex
	store map[string]map[string]cacheEntry
	now   func() time.Time
}

func NewInMemoryCacheStore() *InMemoryCacheStore {
	return &InMemoryCacheStore{
		store: make(map[string]map[string]cacheEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	now := s.now()
	s.mu.RLock()
	entry, ok := s.store[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !now.Before(entry.expiresAt) {
		s.mu.Lock()
		if current, still := s.store[namespace][key]; still && current.writtenAt.Equal(entry.writtenAt) {
			s.deleteLocked(namespace, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryCacheStore) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]cacheEntry)
		s.store[namespace] = ns
	}
	ns[key] = cacheEntry{
		payload:   append([]byte(nil), value...),
		writtenAt: now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *InMemoryCacheStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(namespace, key)
	return nil
}

func (s *InMemoryCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, namespace)
	return nil
}

// SweepExpired drops every entry whose TTL has passed and returns how many
// were removed. Get only evicts the key it reads, so keys that are never read
// again leave only through a sweep.
func (s *InMemoryCacheStore) SweepExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for namespace, ns := range s.store {
		for key, entry := range ns {
			if !now.Before(entry.expiresAt) {
				delete(ns, key)
				removed++
			}
		}
		if len(ns) == 0 {
			delete(s.store, namespace)
		}
	}
	return removed
}

// Len reports the number of resident entries, expired ones included.
func (s *InMemoryCacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ns := range s.store {
		n += len(ns)
	}
	return n
}

func (s *InMemoryCacheStore) RunSweepLoop(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if removed := s.SweepExpired(); removed > 0 {
			logger.DebugContext(ctx, "response cache sweep removed expired entries", "removed", removed)
		}
	}
}

func (s *InMemoryCacheStore) deleteLocked(namespace, key string) {
	ns, ok := s.store[namespace]
	if !ok {
		return
	}
	delete(ns, key)
	if len(ns) == 0 {
		delete(s.store, namespace)
	}
}
