// Package otel exports traces, metrics and diagnostic events over OTLP/gRPC.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Signal is a set of telemetry kinds to export.
type Signal uint8

const (
	Traces Signal = 1 << iota
	Metrics
	Logs
)

const metricInterval = 10 * time.Second

// Options configures NewTelemetry.
type Options struct {
	// Endpoint is host:port or a URL; any path is dropped. Empty disables export.
	Endpoint string
	// Insecure forces plaintext even for https endpoints.
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	Signals        Signal
}

// Telemetry owns the SDK providers for the requested signals. Providers for
// signals that were not requested stay nil.
type Telemetry struct {
	tracer   *sdktrace.TracerProvider
	meter    *metric.MeterProvider
	logger   *sdklog.LoggerProvider
	closers  []func(context.Context) error
	exported Signal
}

// NewTelemetry dials nothing up front; exporters connect lazily.
func NewTelemetry(ctx context.Context, opts Options) (*Telemetry, error) {
	t := &Telemetry{}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" || opts.Signals == 0 {
		return t, nil
	}
	target, plaintext, err := grpcTarget(endpoint)
	if err != nil {
		return nil, err
	}
	plaintext = plaintext || opts.Insecure

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.ServiceVersion),
	))
	if err != nil {
		return nil, err
	}

	if opts.Signals&Traces != 0 {
		if err := t.startTraces(ctx, target, plaintext, res); err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
	}
	if opts.Signals&Metrics != 0 {
		if err := t.startMetrics(ctx, target, plaintext, res); err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
	}
	if opts.Signals&Logs != 0 {
		if err := t.startLogs(ctx, target, plaintext, res); err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
	}
	return t, nil
}

// grpcTarget reduces endpoint to host:port and reports whether it should be dialed without TLS.
func grpcTarget(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("otlp endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("otlp endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}

func (t *Telemetry) startTraces(ctx context.Context, target string, plaintext bool, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	if plaintext {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("trace exporter: %w", err)
	}
	t.tracer = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	t.closers = append(t.closers, t.tracer.Shutdown)
	t.exported |= Traces
	return nil
}

func (t *Telemetry) startMetrics(ctx context.Context, target string, plaintext bool, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if plaintext {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("metric exporter: %w", err)
	}
	t.meter = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp, metric.WithInterval(metricInterval))),
	)
	t.closers = append(t.closers, t.meter.Shutdown)
	t.exported |= Metrics
	return nil
}

func (t *Telemetry) startLogs(ctx context.Context, target string, plaintext bool, res *resource.Resource) error {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if plaintext {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("log exporter: %w", err)
	}
	t.logger = sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)), sdklog.WithResource(res))
	t.closers = append(t.closers, t.logger.Shutdown)
	t.exported |= Logs
	return nil
}

// Exports reports whether s is being exported.
func (t *Telemetry) Exports(s Signal) bool { return t.exported&s == s }

// Install makes the trace and metric providers global so otelgin picks them up.
// Signals that are not exported keep the global no-op providers.
func (t *Telemetry) Install() {
	if t.tracer != nil {
		otel.SetTracerProvider(t.tracer)
	}
	if t.meter != nil {
		otel.SetMeterProvider(t.meter)
	}
}

// EventSink returns a sink over the log provider, or nil when logs are not exported.
func (t *Telemetry) EventSink() *EventSink {
	if t.logger == nil {
		return nil
	}
	return NewEventSink(t.logger)
}

// Shutdown flushes providers in reverse start order.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		errs = append(errs, t.closers[i](ctx))
	}
	t.closers = nil
	return errors.Join(errs...)
}
