package report

import (
	"context"
	"time"

	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxReportDays bounds a single report request
const maxReportDays = 366

// OrderReader is the part of the order store the report path reads
type OrderReader interface {
	List(ctx context.Context, filter order.Filter) ([]order.Order, error)
	CountByStatus(ctx context.Context, status order.Status) (int64, error)
}

// LowStockCounter counts items under the dashboard alert threshold
type LowStockCounter interface {
	LowStockAlertCount(ctx context.Context, date time.Time) (int, error)
}

// ReportService loads report snapshots and hands them to the pure aggregator
type ReportService struct {
	orders    OrderReader
	summaries report.SummaryRepository
	stock     LowStockCounter
	loc       *time.Location
	metrics   *telemetry.POSMetrics
	now       func() time.Time
}

// NewReportService creates a new ReportService reading days in loc
func NewReportService(orders OrderReader, summaries report.SummaryRepository, stock LowStockCounter, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		orders:    orders,
		summaries: summaries,
		stock:     stock,
		loc:       loc,
		now:       time.Now,
	}
}

// SetMetrics sets the business metrics recorder
func (s *ReportService) SetMetrics(m *telemetry.POSMetrics) {
	s.metrics = m
}

// Location returns the reporting timezone
func (s *ReportService) Location() *time.Location {
	return s.loc
}

// BuildReport loads orders and rollup rows for the range concurrently and
// aggregates them. A failed rollup read leaves the breakdown empty; a failed
// order read fails the report.
func (s *ReportService) BuildReport(ctx context.Context, q SalesReportQuery) (report.SalesReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "build",
		telemetry.SpanAttrRangeStart, q.Start.Format(time.DateOnly),
		telemetry.SpanAttrRangeEnd, q.End.Format(time.DateOnly),
		telemetry.SpanAttrShift, string(q.Shift),
	)
	defer span.End()
	started := time.Now()

	from, to, err := s.bounds(q.Start, q.End)
	if err != nil {
		return report.SalesReport{}, err
	}
	shift := q.Shift
	if shift == "" {
		shift = report.ShiftAll
	}
	if !shift.IsValid() {
		return report.SalesReport{}, shared.NewInputError("unknown shift %q", q.Shift)
	}

	var (
		orders    []order.Order
		summaries []report.DailySalesSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.orders.List(gctx, order.Filter{From: &from, To: &to})
		if err != nil {
			return shared.NewDependencyError("list orders", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.summaries.FindBetween(gctx, from, to)
		if err != nil {
			logger.L(ctx).Warn("Daily summary read failed, report has no breakdown", zap.Error(err))
			return nil
		}
		summaries = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return report.SalesReport{}, err
	}

	rep := report.BuildReport(report.Input{
		Start:     from,
		End:       to,
		Shift:     shift,
		Location:  s.loc,
		Orders:    orders,
		Summaries: summaries,
	})
	s.metrics.RecordReportBuild(ctx, string(shift), time.Since(started))

	if len(rep.Divergence) > 0 {
		logger.L(ctx).Debug("Rollup differs from live orders",
			zap.Int("days", len(rep.Divergence)),
			zap.String("start", rep.Start),
			zap.String("end", rep.End),
		)
	}
	return rep, nil
}

// DailySummaries returns the stored rollup rows for a range
func (s *ReportService) DailySummaries(ctx context.Context, start, end time.Time) ([]DailySummaryResponse, error) {
	from, to, err := s.bounds(start, end)
	if err != nil {
		return nil, err
	}
	rows, err := s.summaries.FindBetween(ctx, from, to)
	if err != nil {
		return nil, shared.NewDependencyError("read daily summary", err)
	}
	return ToDailySummaryResponses(rows), nil
}

// Dashboard computes the day's headline figures. Zero date means today.
func (s *ReportService) Dashboard(ctx context.Context, date time.Time) (*DashboardFigures, error) {
	if date.IsZero() {
		date = s.now()
	}
	from, to := report.StartOfDay(date, s.loc), report.EndOfDay(date, s.loc)

	figures := &DashboardFigures{
		Date:         report.DateKey(from, s.loc),
		TodayRevenue: decimal.Zero,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := s.orders.List(gctx, order.Filter{From: &from, To: &to})
		if err != nil {
			return shared.NewDependencyError("list orders", err)
		}
		day := report.LiveDailyTotals(from, orders, s.loc)
		figures.TodayOrders = day.TotalOrders
		figures.TodayRevenue = day.TotalRevenue
		return nil
	})
	g.Go(func() error {
		n, err := s.orders.CountByStatus(gctx, order.StatusPending)
		if err != nil {
			return shared.NewDependencyError("count pending orders", err)
		}
		figures.PendingOrders = n
		return nil
	})
	if s.stock != nil {
		g.Go(func() error {
			n, err := s.stock.LowStockAlertCount(gctx, from)
			if err != nil {
				return err
			}
			figures.LowStockAlerts = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return figures, nil
}

func (s *ReportService) bounds(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, shared.NewInputError("start and end dates are required")
	}
	from, to := report.StartOfDay(start, s.loc), report.EndOfDay(end, s.loc)
	if to.Before(from) {
		return time.Time{}, time.Time{}, shared.NewInputError("end date %s is before start date %s",
			report.DateKey(end, s.loc), report.DateKey(start, s.loc))
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return time.Time{}, time.Time{}, shared.NewInputError("report range exceeds %d days", maxReportDays)
	}
	return from, to, nil
}
