// Package telemetry bootstraps the engine's OTel tracer/meter providers
// (spec §6.5). Packages that want spans or metrics call otel.Tracer/
// otel.Meter against the global delegating provider at init time (see
// internal/scheduler's profiler and internal/storage/dolt's doltTracer
// pattern in the reference codebase this engine's observability layer is
// modeled on); that provider is a no-op until Init is called, so importing
// a package never requires a telemetry backend to be configured.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Options configures Init.
type Options struct {
	ServiceName string
	// PrettyPrint writes human-readable spans to stderr on demand (spec
	// §6.5 "Summary and per-query spans emitted to stderr on demand").
	PrettyPrint bool
}

var shutdownFns []func(context.Context) error

// Init installs a real tracer provider and meter provider, both exporting
// to stderr. Until Init is called, every package's package-level
// otel.Tracer(...)/otel.Meter(...) call keeps forwarding to the no-op
// global providers, so importing telemetry-instrumented packages never
// requires a backend.
func Init(opts Options) (func(context.Context) error, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	traceOpts := []stdouttrace.Option{stdouttrace.WithWriter(os.Stderr)}
	if opts.PrettyPrint {
		traceOpts = append(traceOpts, stdouttrace.WithPrettyPrint())
	}
	traceExp, err := stdouttrace.New(traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(traceExp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building stdout metric exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExp)),
	)
	otel.SetMeterProvider(mp)

	shutdownFns = []func(context.Context) error{tp.Shutdown, mp.Shutdown}
	return Shutdown, nil
}

// Shutdown flushes and stops every provider installed by Init, if any.
func Shutdown(ctx context.Context) error {
	for _, fn := range shutdownFns {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}
