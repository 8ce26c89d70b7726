package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sandeepkv93/deepscan-backend/internal/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func recordEveryHelper(ctx context.Context) {
	RecordScanItemOutcome(ctx, "image", "success")
	RecordScanBatch(ctx, "success", 3, 40*time.Millisecond)
	RecordDetectorRequest(ctx, "success", 20*time.Millisecond)
	RecordCreditLedgerEvent(ctx, "debit", "insufficient")
	RecordPaymentSettlement(ctx, "verify", "settled")
	RecordResponseCacheEvent(ctx, "scans.list", "hit")
	RecordRepositoryOperation(ctx, "verification_result", "list", "success")
	RecordIdentityValidation(ctx, "valid")
	RecordIdempotencyEvent(ctx, "payments.initialize", "new")
	RecordIdempotencyCleanupRun(ctx, "success")
	RecordIdempotencyCleanupDeletedRows(ctx, 3)
	RecordRateLimitDecision(ctx, "scans", "allow", "local")
	RecordMiddlewareValidationEvent(ctx, "body_limit", "rejected")
	RecordHealthCheckResult(ctx, "db", "ready")
	RecordHealthCheckDuration(ctx, "db", 5*time.Millisecond)
	RecordDatabaseStartupEvent(ctx, "connect", "success")
	RecordDatabaseStartupDuration(ctx, "migrate", 15*time.Millisecond)
	RecordToolCommandRun(ctx, "migrate", "up", "success")
	RecordToolCommandDuration(ctx, "seed", "grant-credits", "success", 30*time.Millisecond)
	RecordLoadgenRequest(ctx, "2xx", "scan-list")
}

func TestRecordMetricHelpersNoPanicWhenUninitialized(t *testing.T) {
	metricsMu.Lock()
	appMetrics = nil
	metricsMu.Unlock()

	recordEveryHelper(context.Background())
}

func TestRecordMetricHelpersEmitExpectedLabelCardinality(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := newAppMetrics(provider.Meter("observability-test"))
	if err != nil {
		t.Fatalf("new app metrics: %v", err)
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	defer func() {
		metricsMu.Lock()
		appMetrics = nil
		metricsMu.Unlock()
	}()

	recordEveryHelper(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	expected := map[string]int{
		"scan.item.outcomes":                2,
		"scan.batch.duration":               1,
		"scan.batch.size":                   0,
		"detector.request.duration":         1,
		"credit.ledger.events":              2,
		"payment.settlement.events":         2,
		"response.cache.events":             2,
		"repository.operations":             3,
		"identity.token.validation.events":  1,
		"http.idempotency.events":           2,
		"idempotency.cleanup.runs":          1,
		"idempotency.cleanup.deleted_rows":  0,
		"http.rate_limit.decisions":         3,
		"http.middleware.validation.events": 2,
		"health.check.results":              2,
		"health.check.duration":             1,
		"database.startup.events":           2,
		"database.startup.duration":         1,
		"tool.command.runs":                 3,
		"tool.command.duration":             3,
		"loadgen.requests":                  2,
	}

	observed := collectLabelCardinality(t, rm)
	for metricName, want := range expected {
		got, ok := observed[metricName]
		if !ok {
			t.Fatalf("missing metric datapoint for %s", metricName)
		}
		if got != want {
			t.Fatalf("metric %s label cardinality mismatch: got=%d want=%d", metricName, got, want)
		}
	}
}

func TestInitMetricsDisabledReturnsProvider(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{OTELMetricsEnabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("init metrics disabled: %v", err)
	}
	if mp == nil {
		t.Fatal("expected non-nil meter provider")
	}
	_ = mp.Shutdown(ctx)
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "warn": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "loud": slog.LevelInfo}
	for raw, want := range cases {
		if got := parseLogLevel(raw); got != want {
			t.Fatalf("parseLogLevel(%q) = %v want %v", raw, got, want)
		}
	}
}

func collectLabelCardinality(t *testing.T, rm metricdata.ResourceMetrics) map[string]int {
	t.Helper()
	out := map[string]int{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			}
		}
	}
	return out
}
