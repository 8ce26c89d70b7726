package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/deepscan-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "deepscan-backend"

// Tracer returns the named tracer used for scan and settlement spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens an internal span under whatever span ctx carries.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan marks the span failed when err is set and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// InitTracing installs the global tracer provider and W3C propagation.
// With tracing disabled the provider still exists so spans are created and
// dropped, and inbound trace context keeps flowing to the detector and the
// payment gateway.
func InitTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}
	providerOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.OTELTracingEnabled {
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
		if cfg.OTELExporterOTLPInsecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		providerOpts = append(providerOpts,
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.OTELTraceSamplingRatio))),
		)
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)
	if cfg.OTELTracingEnabled {
		logger.Info("otel tracing initialized", "endpoint", cfg.OTELExporterOTLPEndpoint, "sampling_ratio", cfg.OTELTraceSamplingRatio)
	} else {
		logger.Info("otel tracing disabled")
	}
	return tp, nil
}
