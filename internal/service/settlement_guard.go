package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var ErrSettlementThrottled = errors.New("too many failed payment verifications")

// ThrottledError carries how long the caller has to wait.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrSettlementThrottled, e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error { return ErrSettlementThrottled }

type SettlementGuardPolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

// SettlementGuard slows down users who keep submitting references that fail
// verification or belong to someone else.
type SettlementGuard interface {
	Check(ctx context.Context, userID uint) (time.Duration, error)
	RegisterFailure(ctx context.Context, userID uint) (time.Duration, error)
	Reset(ctx context.Context, userID uint) error
}

type NoopSettlementGuard struct{}

func NewNoopSettlementGuard() *NoopSettlementGuard { return &NoopSettlementGuard{} }

func (NoopSettlementGuard) Check(context.Context, uint) (time.Duration, error) { return 0, nil }

func (NoopSettlementGuard) RegisterFailure(context.Context, uint) (time.Duration, error) {
	return 0, nil
}

func (NoopSettlementGuard) Reset(context.Context, uint) error { return nil }

type guardEntry struct {
	FailCount     int
	LastFailureAt time.Time
	CooldownUntil time.Time
}

type InMemorySettlementGuard struct {
	mu     sync.Mutex
	policy SettlementGuardPolicy
	data   map[uint]guardEntry
	now    func() time.Time
}

func NewInMemorySettlementGuard(policy SettlementGuardPolicy) *InMemorySettlementGuard {
	return &InMemorySettlementGuard{
		policy: normalizeGuardPolicy(policy),
		data:   make(map[uint]guardEntry),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (g *InMemorySettlementGuard) Check(_ context.Context, userID uint) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.data[userID]
	if !ok {
		return 0, nil
	}
	if now.Sub(entry.LastFailureAt) > g.policy.ResetWindow {
		delete(g.data, userID)
		return 0, nil
	}
	if !now.Before(entry.CooldownUntil) {
		return 0, nil
	}
	return entry.CooldownUntil.Sub(now), nil
}

func (g *InMemorySettlementGuard) RegisterFailure(_ context.Context, userID uint) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	entry := g.data[userID]
	if entry.LastFailureAt.IsZero() || now.Sub(entry.LastFailureAt) > g.policy.ResetWindow {
		entry.FailCount = 0
	}
	entry.FailCount++
	entry.LastFailureAt = now
	delay := guardDelay(g.policy, entry.FailCount)
	entry.CooldownUntil = now.Add(delay)
	g.data[userID] = entry
	return delay, nil
}

func (g *InMemorySettlementGuard) Reset(_ context.Context, userID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.data, userID)
	return nil
}

func guardDelay(policy SettlementGuardPolicy, failCount int) time.Duration {
	if failCount <= policy.FreeAttempts {
		return 0
	}
	power := math.Pow(policy.Multiplier, float64(failCount-policy.FreeAttempts-1))
	delay := time.Duration(float64(policy.BaseDelay) * power)
	if delay > policy.MaxDelay {
		return policy.MaxDelay
	}
	return delay
}

func normalizeGuardPolicy(policy SettlementGuardPolicy) SettlementGuardPolicy {
	if policy.FreeAttempts < 0 {
		policy.FreeAttempts = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 2 * time.Second
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 2
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = 5 * time.Minute
	}
	if policy.ResetWindow <= 0 {
		policy.ResetWindow = 30 * time.Minute
	}
	return policy
}
