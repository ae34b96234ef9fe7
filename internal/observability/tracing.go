// Package observability provides OpenTelemetry tracing and structured
// logging for framebind.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every framebind span.
const TracerName = "github.com/efebarandurmaz/framebind"

// TracingConfig configures span export. An empty OTLPEndpoint disables
// export and leaves the global no-op provider in place.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string  // OTLP gRPC, e.g. "localhost:4317"
	SampleRate     float64 // 0..1
}

func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "framebind",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing installs a batching OTLP exporter as the global provider.
// Without an endpoint the returned provider wraps the global no-op tracer
// and Shutdown does nothing.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// Span kinds recorded under framebind.span.kind.
const (
	SpanKindAssemble = "assemble"
	SpanKindRender   = "render"
	SpanKindWrite    = "write"
	SpanKindIndex    = "index"
)

func startSpan(ctx context.Context, name, kind string, spanKind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("framebind.span.kind", kind))
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(spanKind),
		trace.WithAttributes(attrs...),
	)
}

// StartAssembleSpan covers loading, validating and writing one library.
func StartAssembleSpan(ctx context.Context, library string) (context.Context, trace.Span) {
	return startSpan(ctx, "assemble."+library, SpanKindAssemble, trace.SpanKindInternal,
		attribute.String("framebind.library", library))
}

func RecordPackageShape(span trace.Span, files, statements, exports int) {
	span.SetAttributes(
		attribute.Int("package.file_count", files),
		attribute.Int("package.statement_count", statements),
		attribute.Int("package.export_count", exports),
	)
}

func StartRenderSpan(ctx context.Context, file string, statements int) (context.Context, trace.Span) {
	return startSpan(ctx, "render."+file, SpanKindRender, trace.SpanKindInternal,
		attribute.String("render.file", file),
		attribute.Int("render.statement_count", statements))
}

func StartWriteSpan(ctx context.Context, dir string) (context.Context, trace.Span) {
	return startSpan(ctx, "write", SpanKindWrite, trace.SpanKindInternal,
		attribute.String("write.dir", dir))
}

func RecordWriteResult(span trace.Span, units, bytes, pruned int) {
	span.SetAttributes(
		attribute.Int("write.unit_count", units),
		attribute.Int("write.bytes", bytes),
		attribute.Int("write.pruned_count", pruned),
	)
}

// StartIndexSpan covers publishing one library to the symbol graph.
func StartIndexSpan(ctx context.Context, library string) (context.Context, trace.Span) {
	return startSpan(ctx, "index."+library, SpanKindIndex, trace.SpanKindClient,
		attribute.String("framebind.library", library))
}

// RecordError marks span failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
