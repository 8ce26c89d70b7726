package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sandeepkv93/deepscan-backend/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Runtime struct {
	LoggerProvider *sdklog.LoggerProvider
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
}

// InitRuntime brings up logs, metrics and traces in that order and tears
// down whatever already started if a later stage fails.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}
	lp, err := InitLogs(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.LoggerProvider = lp

	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		_ = rt.Shutdown(ctx)
		return nil, err
	}
	rt.MeterProvider = mp

	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		_ = rt.Shutdown(ctx)
		return nil, err
	}
	rt.TracerProvider = tp
	return rt, nil
}

// Shutdown flushes traces first so spans referenced by logs and exemplars
// are exported before their providers close.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.TracerProvider != nil {
		errs = append(errs, r.TracerProvider.Shutdown(ctx))
	}
	if r.MeterProvider != nil {
		errs = append(errs, r.MeterProvider.Shutdown(ctx))
	}
	if r.LoggerProvider != nil {
		errs = append(errs, r.LoggerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
