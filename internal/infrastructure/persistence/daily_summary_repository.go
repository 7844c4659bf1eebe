package persistence

import (
	"context"
	"time"

	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDailySummaryRepository reads and upserts daily_sales_summary rows
type GormDailySummaryRepository struct {
	db *gorm.DB
}

// NewGormDailySummaryRepository creates a new GormDailySummaryRepository
func NewGormDailySummaryRepository(db *gorm.DB) *GormDailySummaryRepository {
	return &GormDailySummaryRepository{db: db}
}

// FindBetween returns rollup rows for start..end inclusive, by date. A
// database without the rollup table reads as having no rows.
func (r *GormDailySummaryRepository) FindBetween(ctx context.Context, start, end time.Time) ([]report.DailySalesSummary, error) {
	var rows []models.DailySalesSummaryModel
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", dateOnly(start), dateOnly(end)).
		Order("date ASC").
		Find(&rows).Error
	if isMissingTable(err) {
		logger.FromContext(ctx).Warn("daily_sales_summary table missing, reading as empty", zap.Error(err))
		return []report.DailySalesSummary{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]report.DailySalesSummary, len(rows))
	for i, m := range rows {
		out[i] = report.DailySalesSummary{
			Date:         dateOnly(m.Date),
			TotalRevenue: m.TotalRevenue,
			TotalOrders:  m.TotalOrders,
		}
	}
	return out, nil
}

// Upsert writes one day's figures, replacing the existing row
func (r *GormDailySummaryRepository) Upsert(ctx context.Context, s report.DailySalesSummary) error {
	row := models.DailySalesSummaryModel{
		Date:         dateOnly(s.Date),
		TotalRevenue: s.TotalRevenue,
		TotalOrders:  s.TotalOrders,
		UpdatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_revenue", "total_orders", "updated_at"}),
	}).Create(&row).Error
}

var _ report.SummaryRepository = (*GormDailySummaryRepository)(nil)
