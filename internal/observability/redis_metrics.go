package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient installs command and pool metrics on the shared
// redis client used by the response cache and the rate limiter.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisMetricsHook(otel.Meter(meterName), client.PoolStats)
		if err != nil {
			logger.Warn("redis instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis instrumentation enabled")
	})
}

type redisMetricsHook struct {
	commands metric.Int64Counter
	latency  metric.Float64Histogram
}

func newRedisMetricsHook(meter metric.Meter, poolStats func() *redis.PoolStats) (*redisMetricsHook, error) {
	commands, err := meter.Int64Counter("redis.commands", metric.WithDescription("Redis commands by name and status"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("redis.command.duration", metric.WithUnit("s"), metric.WithDescription("Redis command latency"))
	if err != nil {
		return nil, err
	}
	saturation, err := meter.Float64ObservableGauge("redis.pool.saturation", metric.WithUnit("1"),
		metric.WithDescription("Used connections over total pool connections"))
	if err != nil {
		return nil, err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		stats := poolStats()
		if stats == nil || stats.TotalConns == 0 {
			return nil
		}
		used := float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
		observer.ObserveFloat64(saturation, min(max(used, 0), 1))
		return nil
	}, saturation)
	if err != nil {
		return nil, err
	}
	return &redisMetricsHook{commands: commands, latency: latency}, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, strings.ToLower(cmd.Name()), err, time.Since(start))
		return err
	}
}

func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe(ctx, "pipeline", err, time.Since(start))
		for _, cmd := range cmds {
			h.commands.Add(ctx, 1, metric.WithAttributes(
				attribute.String("command", strings.ToLower(cmd.Name())),
				attribute.String("status", redisCommandStatus(cmd.Err())),
			))
		}
		return err
	}
}

func (h *redisMetricsHook) observe(ctx context.Context, command string, err error, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", redisCommandStatus(err)),
	)
	if command != "pipeline" {
		h.commands.Add(ctx, 1, attrs)
	}
	h.latency.Record(ctx, d.Seconds(), attrs)
}

func redisCommandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	default:
		return "error"
	}
}
