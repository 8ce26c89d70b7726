package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sandeepkv93/deepscan-backend/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	otlploggrpc "go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

// fanoutHandler writes every record to stdout and, when enabled, the OTel
// log pipeline.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithAttrs(attrs))
	}
	return next
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithGroup(name))
	}
	return next
}

// spanContextHandler stamps trace_id and span_id on records logged inside a span.
type spanContextHandler struct {
	next slog.Handler
}

func (h spanContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h spanContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h spanContextHandler) WithGroup(name string) slog.Handler {
	return spanContextHandler{next: h.next.WithGroup(name)}
}

var (
	loggerMu     sync.RWMutex
	globalLogger *slog.Logger
)

// NewLogger returns the process logger installed by InitLogger, or a plain
// JSON stdout logger before initialization.
func NewLogger() *slog.Logger {
	loggerMu.RLock()
	l := globalLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func NewBootstrapLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.OTELLogLevel)}))
}

func InitLogger(cfg *config.Config, lp *sdklog.LoggerProvider) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.OTELLogLevel)})
	if cfg.OTELLogsEnabled && lp != nil {
		handler = fanoutHandler{handler, otelslog.NewHandler(cfg.OTELServiceName, otelslog.WithLoggerProvider(lp))}
	}
	l := slog.New(spanContextHandler{next: handler}).With("service", cfg.OTELServiceName)

	loggerMu.Lock()
	globalLogger = l
	loggerMu.Unlock()
	slog.SetDefault(l)
	return l
}

func InitLogs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdklog.LoggerProvider, error) {
	if !cfg.OTELLogsEnabled {
		logger.Info("otel logs disabled")
		return nil, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp log exporter: %w", err)
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create logs resource: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	logger.Info("otel logs initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return lp, nil
}

func parseLogLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}
