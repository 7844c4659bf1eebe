// Package stock merges catalog baselines with daily stock logs.
//
// Two classifications exist side by side: an absolute alert threshold used by
// the dashboard, and a relative status used by the stock view. They answer
// different questions and are kept as separate functions.
package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/menu"
)

const (
	// LowStockAlertThreshold is the absolute dashboard threshold.
	LowStockAlertThreshold = 10
	// lowStockPercent is the relative threshold, as a percentage of prepared.
	lowStockPercent = 30
)

// Status is the relative stock classification.
type Status string

const (
	StatusInStock    Status = "In Stock"
	StatusLowStock   Status = "Low Stock"
	StatusOutOfStock Status = "Out of Stock"
)

// Log is the stock record for one menu item on one day.
type Log struct {
	Date              time.Time
	MenuItemID        uuid.UUID
	PreparedQuantity  int
	RemainingQuantity int
}

// LogRepository reads stock logs. A day without rows is valid.
type LogRepository interface {
	FindByDate(ctx context.Context, date time.Time) ([]Log, error)
}

// IsLowStockAlert applies the absolute threshold: remaining < 10.
func IsLowStockAlert(remaining int) bool {
	return remaining < LowStockAlertThreshold
}

// ClassifyRelative applies the relative threshold:
// remaining <= 0 is out of stock, remaining/max(prepared,1) < 0.30 is low.
func ClassifyRelative(remaining, prepared int) Status {
	if remaining <= 0 {
		return StatusOutOfStock
	}
	if prepared < 1 {
		prepared = 1
	}
	if remaining*100 < lowStockPercent*prepared {
		return StatusLowStock
	}
	return StatusInStock
}

// Line is one item of the stock view.
type Line struct {
	Item          menu.Item
	Prepared      int
	Remaining     int
	Status        Status
	LowStockAlert bool
	// Logged is false when the baseline was used.
	Logged bool
}

// Totals summarizes a stock view.
type Totals struct {
	Items      int
	InStock    int
	OutOfStock int
	Prepared   int
	Remaining  int
	LowAlerts  int
}

// View is the stock picture for one day.
type View struct {
	Date   time.Time
	Lines  []Line
	Totals Totals
}

// Reconcile builds the view for date. Items keep their input order; an item
// with no log row falls back to prepared = remaining = baseline.
func Reconcile(date time.Time, items []menu.Item, logs []Log) View {
	byItem := make(map[uuid.UUID]Log, len(logs))
	for _, l := range logs {
		byItem[l.MenuItemID] = l
	}

	view := View{Date: date, Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		line := Line{
			Item:      item,
			Prepared:  item.DailyStockQuantity,
			Remaining: item.DailyStockQuantity,
		}
		if l, ok := byItem[item.ID]; ok {
			line.Prepared = l.PreparedQuantity
			line.Remaining = l.RemainingQuantity
			line.Logged = true
		}
		line.Status = ClassifyRelative(line.Remaining, line.Prepared)
		line.LowStockAlert = IsLowStockAlert(line.Remaining)
		view.Lines = append(view.Lines, line)

		view.Totals.Items++
		view.Totals.Prepared += line.Prepared
		view.Totals.Remaining += line.Remaining
		if line.Remaining > 0 {
			view.Totals.InStock++
		} else {
			view.Totals.OutOfStock++
		}
		if line.LowStockAlert {
			view.Totals.LowAlerts++
		}
	}
	return view
}
