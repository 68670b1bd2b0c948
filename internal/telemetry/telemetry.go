// Package telemetry bootstraps the OpenTelemetry SDK for open-mem and
// exposes package-scoped Meter/Tracer accessors. It is authored fresh
// (the teacher's internal/telemetry package that internal/compact/haiku.go
// calls into wasn't present in the retrieved file set) but matches that
// call shape exactly: telemetry.Meter(name) and telemetry.Tracer(name).
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	stdoutmetric "go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Exporter selects where metrics/traces go.
type Exporter string

const (
	ExporterStdout Exporter = "stdout"
	ExporterOTLP   Exporter = "otlp"
)

// Config controls SDK bootstrap.
type Config struct {
	Exporter    Exporter
	OTLPEndpoint string
	ServiceName string
}

var (
	once           sync.Once
	meterProvider  metric.MeterProvider = otel.GetMeterProvider()
	tracerProvider trace.TracerProvider = otel.GetTracerProvider()
	shutdownFuncs  []func(context.Context) error
	mu             sync.Mutex
)

// Init configures the global meter/tracer providers. Safe to call once at
// process startup; subsequent calls are no-ops. Defaults to stdout
// metric and trace exporters (matching the teacher's dev-mode default).
// Selecting OTLP without an endpoint returns an error; with one, metrics
// go to the OTLP endpoint and the tracer provider has no exporter.
func Init(ctx context.Context, cfg Config) error {
	var err error
	once.Do(func() {
		err = initProviders(ctx, cfg)
	})
	return err
}

func initProviders(ctx context.Context, cfg Config) error {
	name := cfg.ServiceName
	if name == "" {
		name = "open-mem"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(name)))
	if err != nil {
		return fmt.Errorf("telemetry: build resource: %w", err)
	}

	switch cfg.Exporter {
	case ExporterOTLP:
		if cfg.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry: otlp exporter requires an endpoint")
		}
		metricExp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		if err != nil {
			return fmt.Errorf("telemetry: build otlp metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		)
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
		registerProviders(mp, tp)
	default:
		metricExp, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("telemetry: build stdout metric exporter: %w", err)
		}
		traceExp, err := stdouttrace.New()
		if err != nil {
			return fmt.Errorf("telemetry: build stdout trace exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		)
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(traceExp),
		)
		registerProviders(mp, tp)
	}
	return nil
}

func registerProviders(mp *sdkmetric.MeterProvider, tp *sdktrace.TracerProvider) {
	mu.Lock()
	defer mu.Unlock()
	meterProvider = mp
	tracerProvider = tp
	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)
	shutdownFuncs = append(shutdownFuncs, mp.Shutdown, tp.Shutdown)
}

// Shutdown flushes and releases any SDK providers Init created.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	fns := shutdownFuncs
	shutdownFuncs = nil
	mu.Unlock()

	var firstErr error
	for _, fn := range fns {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Meter returns a named meter from the process-wide provider.
func Meter(name string) metric.Meter {
	mu.Lock()
	defer mu.Unlock()
	return meterProvider.Meter(name)
}

// Tracer returns a named tracer from the process-wide provider.
func Tracer(name string) trace.Tracer {
	mu.Lock()
	defer mu.Unlock()
	return tracerProvider.Tracer(name)
}
