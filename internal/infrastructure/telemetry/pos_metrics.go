package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the meter used for POS business metrics
const MeterName = "pos-backend"

// Submission outcomes
const (
	OutcomeStored       = "stored"
	OutcomeInvalid      = "invalid"
	OutcomeFailed       = "failed"
	OutcomePartialWrite = "partial_write"
)

// POSMetrics records order, report and sync activity. A nil *POSMetrics
// records nothing.
type POSMetrics struct {
	ordersSubmitted *Counter
	orderRevenue    *Counter
	statusChanges   *Counter
	notifyFailures  *Counter
	resyncs         *Counter
	reportDuration  *Histogram
	exports         *Counter
	lowStockItems   *Gauge
}

// NewPOSMetrics registers every POS instrument on meter.
func NewPOSMetrics(meter metric.Meter) (*POSMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	in := NewInstruments(meter)
	m := &POSMetrics{
		ordersSubmitted: in.Counter("pos_orders_submitted_total", "Order submissions by outcome", "{orders}"),
		orderRevenue:    in.Counter("pos_order_revenue_minor_total", "Stored order value in minor currency units", "{paise}"),
		statusChanges:   in.Counter("pos_order_status_changes_total", "Order status transitions", "{changes}"),
		notifyFailures:  in.Counter("pos_notify_failures_total", "Failed new-order notifications", "{notifications}"),
		resyncs:         in.Counter("pos_order_resyncs_total", "Order list re-reads by trigger", "{resyncs}"),
		exports:         in.Counter("pos_report_exports_total", "Report exports by format", "{exports}"),
		lowStockItems:   in.Gauge("pos_low_stock_items", "Menu items under the low stock alert threshold", "{items}"),
		reportDuration:  in.Histogram("pos_report_build_duration_seconds", "Time to load and aggregate a sales report", "s", ReportDurationBuckets...),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewNopPOSMetrics returns metrics that record nothing.
func NewNopPOSMetrics() *POSMetrics {
	m, _ := NewPOSMetrics(noopMeter())
	return m
}

// RecordSubmission counts one SubmitOrder call and, when stored, its value.
func (m *POSMetrics) RecordSubmission(ctx context.Context, outcome, payment string, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ordersSubmitted.Inc(ctx, AttrOutcome.String(outcome), AttrPaymentMethod.String(payment))
	if outcome == OutcomeStored {
		m.orderRevenue.Add(ctx, total.Shift(2).IntPart(), AttrPaymentMethod.String(payment))
	}
}

// RecordStatusChange counts a transition into status.
func (m *POSMetrics) RecordStatusChange(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.statusChanges.Inc(ctx, AttrOrderStatus.String(status))
}

// RecordNotifyFailure counts a dropped notification.
func (m *POSMetrics) RecordNotifyFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.notifyFailures.Inc(ctx)
}

// RecordResync counts a synchronizer re-read.
func (m *POSMetrics) RecordResync(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	m.resyncs.Inc(ctx, AttrTrigger.String(trigger))
}

// RecordReportBuild records how long a report took.
func (m *POSMetrics) RecordReportBuild(ctx context.Context, shift string, d time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.RecordDuration(ctx, d, AttrShift.String(shift))
}

// RecordExport counts a report export.
func (m *POSMetrics) RecordExport(ctx context.Context, format string) {
	if m == nil {
		return
	}
	m.exports.Inc(ctx, AttrFormat.String(format))
}

// RecordLowStockItems sets the current low stock alert count.
func (m *POSMetrics) RecordLowStockItems(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.lowStockItems.Record(ctx, int64(count))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPOSMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
