package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

const meterName = "deepscan-backend"

type AppMetrics struct {
	scanItemOutcomes          metric.Int64Counter
	scanBatchDuration         metric.Float64Histogram
	scanBatchSize             metric.Float64Histogram
	detectorReqDuration       metric.Float64Histogram
	creditLedgerCounter       metric.Int64Counter
	paymentSettlementCounter  metric.Int64Counter
	responseCacheCounter      metric.Int64Counter
	repositoryOpsCounter      metric.Int64Counter
	identityValidationCounter metric.Int64Counter
	idempotencyCounter        metric.Int64Counter
	idempotencyCleanupCounter metric.Int64Counter
	idempotencyCleanupDeleted metric.Float64Histogram
	rateLimitDecisionCounter  metric.Int64Counter
	httpMiddlewareValidation  metric.Int64Counter
	healthCheckResultCounter  metric.Int64Counter
	healthCheckDuration       metric.Float64Histogram
	databaseStartupCounter    metric.Int64Counter
	databaseStartupDuration   metric.Float64Histogram
	toolCommandRuns           metric.Int64Counter
	toolCommandDuration       metric.Float64Histogram
	loadgenRequestsCounter    metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	latencyBuckets := sdkmetric.Stream{
		Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(
			sdkmetric.NewView(sdkmetric.Instrument{Name: "detector.request.duration"}, latencyBuckets),
			sdkmetric.NewView(sdkmetric.Instrument{Name: "scan.batch.duration"}, latencyBuckets),
		),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var firstErr error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create counter %s: %w", name, err)
		}
		return c
	}
	hist := func(name, unit, desc string) metric.Float64Histogram {
		opts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
		if unit != "" {
			opts = append(opts, metric.WithUnit(unit))
		}
		h, err := meter.Float64Histogram(name, opts...)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("create histogram %s: %w", name, err)
		}
		return h
	}

	m := &AppMetrics{
		scanItemOutcomes:          counter("scan.item.outcomes", "Per-item results of scan batches"),
		scanBatchDuration:         hist("scan.batch.duration", "s", "Wall time of a scan batch including persistence"),
		scanBatchSize:             hist("scan.batch.size", "", "Number of media items submitted per batch"),
		detectorReqDuration:       hist("detector.request.duration", "s", "Duration of detector provider calls"),
		creditLedgerCounter:       counter("credit.ledger.events", "Credit ledger mutations by outcome"),
		paymentSettlementCounter:  counter("payment.settlement.events", "Payment settlement attempts by outcome"),
		responseCacheCounter:      counter("response.cache.events", "Response cache hits, misses and invalidations"),
		repositoryOpsCounter:      counter("repository.operations", "Repository operations by entity and outcome"),
		identityValidationCounter: counter("identity.token.validation.events", "Identity token validation results"),
		idempotencyCounter:        counter("http.idempotency.events", "Idempotency middleware decisions"),
		idempotencyCleanupCounter: counter("idempotency.cleanup.runs", "Idempotency cleanup loop runs"),
		idempotencyCleanupDeleted: hist("idempotency.cleanup.deleted_rows", "", "Rows removed per idempotency cleanup run"),
		rateLimitDecisionCounter:  counter("http.rate_limit.decisions", "Rate limiter decisions"),
		httpMiddlewareValidation:  counter("http.middleware.validation.events", "Request validation middleware events"),
		healthCheckResultCounter:  counter("health.check.results", "Readiness dependency check results"),
		healthCheckDuration:       hist("health.check.duration", "s", "Duration of readiness dependency checks"),
		databaseStartupCounter:    counter("database.startup.events", "Database connect and migrate events"),
		databaseStartupDuration:   hist("database.startup.duration", "s", "Duration of database startup phases"),
		toolCommandRuns:           counter("tool.command.runs", "CLI tool command runs"),
		toolCommandDuration:       hist("tool.command.duration", "s", "CLI tool command duration"),
		loadgenRequestsCounter:    counter("loadgen.requests", "Requests issued by the load generator"),
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordScanItemOutcome(ctx context.Context, mediaType, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.scanItemOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("media_type", mediaType),
		attribute.String("outcome", outcome),
	))
}

func RecordScanBatch(ctx context.Context, outcome string, size int, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.scanBatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	m.scanBatchSize.Record(ctx, float64(size))
}

func RecordDetectorRequest(ctx context.Context, outcome string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.detectorReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordCreditLedgerEvent(ctx context.Context, operation, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.creditLedgerCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordPaymentSettlement(ctx context.Context, source, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.paymentSettlementCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))
}

func RecordResponseCacheEvent(ctx context.Context, operation, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.responseCacheCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordIdentityValidation(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.identityValidationCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordIdempotencyEvent(ctx context.Context, scope, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.idempotencyCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	))
}

func RecordIdempotencyCleanupRun(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.idempotencyCleanupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordIdempotencyCleanupDeletedRows(ctx context.Context, deleted int64) {
	m := current()
	if m == nil {
		return
	}
	m.idempotencyCleanupDeleted.Record(ctx, float64(deleted))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	m := current()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
	))
}

func RecordMiddlewareValidationEvent(ctx context.Context, middleware, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.httpMiddlewareValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("middleware", middleware),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, dependency, result string) {
	m := current()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("result", result),
	))
}

func RecordHealthCheckDuration(ctx context.Context, dependency string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("dependency", dependency)))
}

func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.databaseStartupCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.databaseStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

func RecordToolCommandDuration(ctx context.Context, tool, command, outcome string, duration time.Duration) {
	m := current()
	if m == nil {
		return
	}
	m.toolCommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

func RecordLoadgenRequest(ctx context.Context, statusClass, profile string) {
	m := current()
	if m == nil {
		return
	}
	m.loadgenRequestsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status_class", statusClass),
		attribute.String("profile", profile),
	))
}
