package stock

import (
	"context"
	"time"

	"github.com/pos/backend/internal/domain/menu"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/stock"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// StockService reconciles the menu baseline against the day's stock logs
type StockService struct {
	menu    menu.Reader
	logs    stock.LogRepository
	metrics *telemetry.POSMetrics
}

// NewStockService creates a new StockService
func NewStockService(menuReader menu.Reader, logs stock.LogRepository) *StockService {
	return &StockService{menu: menuReader, logs: logs}
}

// SetMetrics sets the business metrics recorder
func (s *StockService) SetMetrics(m *telemetry.POSMetrics) {
	s.metrics = m
}

// GetStockView returns one line per menu item, enabled or not, in creation
// order. A failed log read falls back to the baseline for every item.
func (s *StockService) GetStockView(ctx context.Context, date time.Time) (stock.View, bool, error) {
	items, err := s.menu.List(ctx, false)
	if err != nil {
		return stock.View{}, false, shared.NewDependencyError("list menu items", err)
	}

	degraded := false
	logs, err := s.logs.FindByDate(ctx, date)
	if err != nil {
		logger.L(ctx).Warn("Stock log read failed, using daily baseline",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Error(err),
		)
		logs = nil
		degraded = true
	}

	view := stock.Reconcile(date, items, logs)
	s.metrics.RecordLowStockItems(ctx, view.Totals.LowAlerts)
	return view, degraded, nil
}

// LowStockAlertCount counts items under the absolute alert threshold
func (s *StockService) LowStockAlertCount(ctx context.Context, date time.Time) (int, error) {
	view, _, err := s.GetStockView(ctx, date)
	if err != nil {
		return 0, err
	}
	return view.Totals.LowAlerts, nil
}
