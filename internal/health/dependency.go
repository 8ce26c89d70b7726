package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Pinger is anything that can report reachability, such as the media store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker turns a reachability call into a named check.
type PingChecker struct {
	name string
	ping func(context.Context) error
}

func NewPingChecker(name string, ping func(context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		return CheckResult{Name: c.name, Error: err.Error()}
	}
	return CheckResult{Name: c.name, Healthy: true}
}

// The constructors below return a nil Checker for an unconfigured
// dependency; NewProbeRunner skips those.

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return NewPingChecker("db", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return NewPingChecker("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func NewStorageChecker(store Pinger) Checker {
	if store == nil {
		return nil
	}
	return NewPingChecker("storage", store.Ping)
}
