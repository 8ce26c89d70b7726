package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

type CacheOperation string

const (
	CacheOpScanList    CacheOperation = "scans.list"
	CacheOpScanItem    CacheOperation = "scans.item"
	CacheOpProfile     CacheOperation = "users.profile"
	CacheOpPaymentList CacheOperation = "payments.list"
)

// generationStripes bounds the invalidation counters. Namespaces sharing a
// stripe only cost each other a skipped write.
const generationStripes = 256

type ResponseCacheConfig struct {
	ListTTL    time.Duration
	ItemTTL    time.Duration
	ProfileTTL time.Duration
}

// ResponseCache memoizes per-user read results keyed by operation and
// request parameters. Store failures degrade to a direct load.
type ResponseCache struct {
	store  CacheStore
	ttls   map[CacheOperation]time.Duration
	group  singleflight.Group
	logger *slog.Logger
	gens   [generationStripes]atomic.Uint64
}

func NewResponseCache(store CacheStore, cfg ResponseCacheConfig, logger *slog.Logger) *ResponseCache {
	if store == nil {
		store = NewNoopCacheStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{
		store: store,
		ttls: map[CacheOperation]time.Duration{
			CacheOpScanList:    cfg.ListTTL,
			CacheOpScanItem:    cfg.ItemTTL,
			CacheOpProfile:     cfg.ProfileTTL,
			CacheOpPaymentList: cfg.ListTTL,
		},
		logger: logger,
	}
}

func cacheNamespace(op CacheOperation, userID uint) string {
	return fmt.Sprintf("%s:user-%d", op, userID)
}

// generation is bumped on every invalidation of the namespace. A load that
// started under an older generation must not write its result back.
func (c *ResponseCache) generation(ns string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ns))
	return &c.gens[h.Sum32()%generationStripes]
}

// GetOrLoad returns the cached payload for (op, user, key) or runs load,
// stores its result and returns it. Concurrent misses on one key share a
// single load.
func (c *ResponseCache) GetOrLoad(ctx context.Context, op CacheOperation, userID uint, key string, load func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	ns := cacheNamespace(op, userID)
	gen := c.generation(ns)
	startGen := gen.Load()
	if payload, ok, err := c.store.Get(ctx, ns, key); err != nil {
		observability.RecordResponseCacheEvent(ctx, string(op), "error")
		c.logger.WarnContext(ctx, "response cache read failed", "operation", op, "error", err)
	} else if ok {
		observability.RecordResponseCacheEvent(ctx, string(op), "hit")
		return payload, true, nil
	}
	observability.RecordResponseCacheEvent(ctx, string(op), "miss")

	flight := fmt.Sprintf("%s|%s|%d", ns, key, startGen)
	v, err, shared := c.group.Do(flight, func() (any, error) {
		payload, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if gen.Load() != startGen {
			observability.RecordResponseCacheEvent(ctx, string(op), "stale_discard")
			return payload, nil
		}
		if setErr := c.store.Set(ctx, ns, key, payload, c.ttls[op]); setErr != nil {
			c.logger.WarnContext(ctx, "response cache write failed", "operation", op, "error", setErr)
		}
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		observability.RecordResponseCacheEvent(ctx, string(op), "shared")
	}
	return v.([]byte), false, nil
}

// Invalidate drops every cached entry of the given operations for a user.
func (c *ResponseCache) Invalidate(ctx context.Context, userID uint, ops ...CacheOperation) {
	for _, op := range ops {
		ns := cacheNamespace(op, userID)
		c.generation(ns).Add(1)
		if err := c.store.InvalidateNamespace(ctx, ns); err != nil {
			c.logger.WarnContext(ctx, "response cache invalidation failed", "operation", op, "user_id", userID, "error", err)
			continue
		}
		observability.RecordResponseCacheEvent(ctx, string(op), "invalidate")
	}
}

func (c *ResponseCache) InvalidateKey(ctx context.Context, op CacheOperation, userID uint, key string) {
	ns := cacheNamespace(op, userID)
	c.generation(ns).Add(1)
	if err := c.store.Delete(ctx, ns, key); err != nil {
		c.logger.WarnContext(ctx, "response cache delete failed", "operation", op, "user_id", userID, "error", err)
		return
	}
	observability.RecordResponseCacheEvent(ctx, string(op), "invalidate")
}

// cachedJSON wraps GetOrLoad for typed values encoded as JSON.
func cachedJSON[T any](ctx context.Context, c *ResponseCache, op CacheOperation, userID uint, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var out T
	payload, hit, err := c.GetOrLoad(ctx, op, userID, key, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, false, err
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, false, fmt.Errorf("decode cached %s: %w", op, err)
	}
	return out, hit, nil
}
