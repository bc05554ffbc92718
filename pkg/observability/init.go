package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName scopes the tracer and meter this process creates.
const instrumentationName = "testevo"

// Providers bundles everything Init hands back to the binary.
type Providers struct {
	// Tracer creates spans under the testevo instrumentation scope.
	Tracer trace.Tracer

	// Meter creates instruments under the testevo instrumentation scope.
	Meter metric.Meter

	// Logger is the process logger, trace-correlated when a span is active.
	Logger *slog.Logger

	// Shutdown flushes pending telemetry. Call it before process exit or
	// the last batch of spans and metric points is lost.
	Shutdown func(ctx context.Context) error
}

// Init wires up OpenTelemetry tracing, metrics, and structured logging.
// Without an OTLP endpoint the trace and metric providers are no-ops and
// only the logger does work.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	res, err := otelResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	tp, stopTraces, err := tracerProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, fmt.Errorf("tracer provider: %w", err)
	}

	mp, stopMetrics, err := meterProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("meter provider: %w", err), stopTraces(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.shutdownTimeout())
		defer cancel()

		return errors.Join(stopTraces(ctx), stopMetrics(ctx))
	}

	return Providers{
		Tracer:   tp.Tracer(instrumentationName),
		Meter:    mp.Meter(instrumentationName),
		Logger:   newLogger(cfg),
		Shutdown: shutdown,
	}, nil
}

// otelResource describes this process to the collector. Only attributes the
// config actually carries are attached.
func otelResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String("app.mode", string(cfg.Mode)))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	return res, nil
}

// stopFunc flushes and tears down one provider.
type stopFunc func(context.Context) error

func nopStop(context.Context) error { return nil }

func tracerProvider(
	ctx context.Context, cfg Config, res *resource.Resource,
) (trace.TracerProvider, stopFunc, error) {
	if !cfg.exportEnabled() {
		return nooptrace.NewTracerProvider(), nopStop, nil
	}

	exporter, err := otlptracegrpc.New(ctx, traceExportOptions(cfg)...)
	if err != nil {
		return nil, nil, fmt.Errorf("trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg)),
	)

	return tp, tp.Shutdown, nil
}

func traceExportOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}

	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.OTLPHeaders))
	}

	return opts
}

// sampler honors SampleRatio when set and otherwise records everything,
// deferring to the parent decision on both paths.
func sampler(cfg Config) sdktrace.Sampler {
	root := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 {
		root = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	return sdktrace.ParentBased(root)
}

func meterProvider(
	ctx context.Context, cfg Config, res *resource.Resource,
) (metric.MeterProvider, stopFunc, error) {
	if !cfg.exportEnabled() {
		return noopmetric.NewMeterProvider(), nopStop, nil
	}

	exporter, err := otlpmetricgrpc.New(ctx, metricExportOptions(cfg)...)
	if err != nil {
		return nil, nil, fmt.Errorf("metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	return mp, mp.Shutdown, nil
}

func metricExportOptions(cfg Config) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}

	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders))
	}

	return opts
}
