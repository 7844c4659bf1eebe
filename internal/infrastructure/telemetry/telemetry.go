// Package telemetry wires OpenTelemetry tracing, metrics and logs for the POS
// backend. Every signal exports over OTLP gRPC to the same collector.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pos/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every exported signal.
const ServiceVersion = "1.0.0"

// stopTimeout bounds how long one provider may spend flushing on shutdown.
const stopTimeout = 10 * time.Second

// Providers groups the three signal providers so they start and stop together.
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup starts every signal enabled in cfg. Metrics and logs also need the
// master switch; a disabled signal gets a provider that exports nothing.
func Setup(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger) (*Providers, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var res *resource.Resource
	if cfg.Enabled {
		var err error
		if res, err = newResource(cfg.ServiceName); err != nil {
			return nil, err
		}
	}

	p := &Providers{
		Tracer: &TracerProvider{log: log},
		Meter:  &MeterProvider{log: log},
		Logs:   &LoggerProvider{log: log, scope: cfg.ServiceName},
	}

	steps := []struct {
		signal string
		on     bool
		start  func() error
	}{
		{"traces", cfg.Enabled, func() error { return p.Tracer.start(ctx, cfg, res) }},
		{"metrics", cfg.Enabled && cfg.MetricsEnabled, func() error { return p.Meter.start(ctx, cfg, res) }},
		{"logs", cfg.Enabled && cfg.LogsEnabled, func() error { return p.Logs.start(ctx, cfg, res) }},
	}
	for _, step := range steps {
		if !step.on {
			log.Info("Telemetry signal disabled", zap.String("signal", step.signal))
			continue
		}
		if err := step.start(); err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("start %s exporter: %w", step.signal, err)
		}
		log.Info("Telemetry signal exporting",
			zap.String("signal", step.signal),
			zap.String("collector_endpoint", cfg.CollectorEndpoint),
		)
	}
	return p, nil
}

// Shutdown flushes and stops all providers, logs first so late spans still export.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Logs.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Tracer.Shutdown(ctx),
	)
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// stopWithin runs stop under a bounded context and labels any failure.
func stopWithin(ctx context.Context, signal string, log *zap.Logger, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("Telemetry provider shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	return nil
}
