package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false, ServiceName: "pos-test"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.NotNil(t, p.Tracer.Tracer("x"))
	assert.NotNil(t, p.Meter.Meter("x"))
	assert.NoError(t, p.Tracer.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_SubSignalsNeedMasterSwitch(t *testing.T) {
	// No exporter is dialled while the master switch is off.
	p, err := Setup(context.Background(), config.TelemetryConfig{
		MetricsEnabled: true,
		LogsEnabled:    true,
		ServiceName:    "pos-test",
	}, nil)
	require.NoError(t, err)

	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.False(t, p.Logs.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestInstruments_KeepsFirstError(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	in := NewInstruments(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))

	assert.NotNil(t, in.Counter("ok_total", "fine", "1"))
	assert.Nil(t, in.Counter("bad name!", "invalid instrument name", "1"))
	assert.Nil(t, in.Gauge("later", "skipped after a failure", "1"))
	require.Error(t, in.Err())
	assert.Contains(t, in.Err().Error(), "bad name!")
}

func TestLevelFilterCore(t *testing.T) {
	base := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(&nopWriter{}), zapcore.DebugLevel)
	core := &levelFilterCore{Core: base, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	assert.Nil(t, core.Check(zapcore.Entry{Level: zapcore.InfoLevel}, nil))

	child := core.With([]zapcore.Field{zap.String("k", "v")})
	assert.False(t, child.Enabled(zapcore.DebugLevel))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestPOSMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewPOSMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSubmission(ctx, OutcomeStored, "cash", decimal.RequireFromString("120.50"))
	m.RecordSubmission(ctx, OutcomeInvalid, "cash", decimal.RequireFromString("999"))
	m.RecordStatusChange(ctx, "PLACED")
	m.RecordNotifyFailure(ctx)
	m.RecordResync(ctx, "poll")
	m.RecordExport(ctx, "csv")
	m.RecordLowStockItems(ctx, 3)
	m.RecordReportBuild(ctx, "ALL", 30*time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["pos_orders_submitted_total"]))
	assert.Equal(t, int64(12050), sumOf(t, got["pos_order_revenue_minor_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["pos_order_status_changes_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["pos_notify_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["pos_order_resyncs_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["pos_report_exports_total"]))

	gauge, ok := got["pos_low_stock_items"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)

	hist, ok := got["pos_report_build_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	shift, _ := hist.DataPoints[0].Attributes.Value(attribute.Key("shift"))
	assert.Equal(t, "ALL", shift.AsString())
}

func TestPOSMetrics_NilSafe(t *testing.T) {
	var m *POSMetrics
	assert.NotPanics(t, func() {
		m.RecordSubmission(context.Background(), OutcomeStored, "cash", decimal.NewFromInt(1))
		m.RecordResync(context.Background(), "push")
	})
	assert.NotNil(t, NewNopPOSMetrics())
}

func TestNewPOSMetrics_NilMeter(t *testing.T) {
	_, err := NewPOSMetrics(nil)
	require.Error(t, err)
	assert.Equal(t, "NewPOSMetrics: meter cannot be nil", err.Error())
}

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestRegisterDBTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.SlowQueryThresh = time.Nanosecond
	require.NoError(t, RegisterDBTracing(db, cfg, zap.NewNop()))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "x"}).Error)
	err = db.WithContext(ctx).Where("id = ?", 999).First(&tracedRow{}).Error
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	parent.End()

	var dbSpans int
	for _, s := range recorder.Ended() {
		if s.Name() == "parent" {
			continue
		}
		dbSpans++
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	assert.NoError(t, RegisterDBTracing(db, DefaultDBTracingConfig(), zap.NewNop()))
}

func TestStartServiceSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartServiceSpan(context.Background(), "order_ingestion", "submit", SpanAttrItemCount, 3)
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrOrderNumber, "ORD-1")
	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "order_ingestion.submit", ended[0].Name())
	assert.Equal(t, "boom", ended[0].Status().Description)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(3), attrs[SpanAttrItemCount].AsInt64())
	assert.Equal(t, "ORD-1", attrs[SpanAttrOrderNumber].AsString())
	assert.Empty(t, GetTraceID(context.Background()))
}
