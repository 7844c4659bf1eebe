package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Attribute keys shared by POS and HTTP metrics.
var (
	AttrPaymentMethod = attribute.Key("payment_method")
	AttrOrderStatus   = attribute.Key("order_status")
	AttrOutcome       = attribute.Key("outcome")
	AttrShift         = attribute.Key("shift")
	AttrFormat        = attribute.Key("format")
	AttrTrigger       = attribute.Key("trigger")

	AttrHTTPMethod     = attribute.Key("http_method")
	AttrHTTPRoute      = attribute.Key("http_route")
	AttrHTTPStatusCode = attribute.Key("http_status_code")
)

// Histogram boundaries, in seconds.
var (
	HTTPDurationBuckets   = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	ReportDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

// Counter is a monotonic int64 counter.
type Counter struct {
	inst metric.Int64Counter
}

// Add increments the counter by value.
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.inst.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one.
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Histogram records a float64 distribution.
type Histogram struct {
	inst metric.Float64Histogram
}

// Record records a raw value.
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.inst.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// Gauge records the latest int64 value.
type Gauge struct {
	inst metric.Int64Gauge
}

// Record sets the current value.
func (g *Gauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	g.inst.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Instruments registers instruments on one meter and keeps the first error,
// so a block of registrations needs a single check at the end.
type Instruments struct {
	meter metric.Meter
	err   error
}

// NewInstruments starts a registration block on meter.
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Counter registers a counter. After an earlier failure it returns nil.
func (in *Instruments) Counter(name, description, unit string) *Counter {
	if in.err != nil {
		return nil
	}
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.err = fmt.Errorf("counter %s: %w", name, err)
		return nil
	}
	return &Counter{inst: c}
}

// Histogram registers a histogram; empty bounds keep the SDK defaults.
func (in *Instruments) Histogram(name, description, unit string, bounds ...float64) *Histogram {
	if in.err != nil {
		return nil
	}
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}
	h, err := in.meter.Float64Histogram(name, opts...)
	if err != nil {
		in.err = fmt.Errorf("histogram %s: %w", name, err)
		return nil
	}
	return &Histogram{inst: h}
}

// Gauge registers a gauge.
func (in *Instruments) Gauge(name, description, unit string) *Gauge {
	if in.err != nil {
		return nil
	}
	g, err := in.meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.err = fmt.Errorf("gauge %s: %w", name, err)
		return nil
	}
	return &Gauge{inst: g}
}

// UpDownCounter registers a raw up-down counter.
func (in *Instruments) UpDownCounter(name, description, unit string) metric.Int64UpDownCounter {
	if in.err != nil {
		return nil
	}
	u, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		in.err = fmt.Errorf("up-down counter %s: %w", name, err)
		return nil
	}
	return u
}

// Err returns the first registration failure.
func (in *Instruments) Err() error { return in.err }

func noopMeter() metric.Meter {
	return noop.NewMeterProvider().Meter(MeterName)
}
