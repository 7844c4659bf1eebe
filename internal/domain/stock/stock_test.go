package stock

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/menu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLowStockAlert(t *testing.T) {
	assert.True(t, IsLowStockAlert(0))
	assert.True(t, IsLowStockAlert(9))
	assert.False(t, IsLowStockAlert(10))
	assert.False(t, IsLowStockAlert(50))
}

func TestClassifyRelative(t *testing.T) {
	tests := []struct {
		name                string
		remaining, prepared int
		want                Status
	}{
		{"nothing left", 0, 50, StatusOutOfStock},
		{"negative remaining", -2, 50, StatusOutOfStock},
		{"under thirty percent", 14, 50, StatusLowStock},
		{"exactly thirty percent", 15, 50, StatusInStock},
		{"full", 50, 50, StatusInStock},
		{"zero prepared uses one", 1, 0, StatusInStock},
		{"large stock is not low even below ten", 9, 20, StatusInStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRelative(tt.remaining, tt.prepared))
		})
	}
}

func TestClassifiersDisagree(t *testing.T) {
	// 9 of 20 left: the dashboard alerts, the stock view does not.
	assert.True(t, IsLowStockAlert(9))
	assert.Equal(t, StatusInStock, ClassifyRelative(9, 20))

	// 20 of 100 left: the stock view says low, the dashboard stays quiet.
	assert.False(t, IsLowStockAlert(20))
	assert.Equal(t, StatusLowStock, ClassifyRelative(20, 100))
}

func TestReconcile(t *testing.T) {
	day := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	idli := menu.Item{ID: uuid.New(), Name: "Idli", DailyStockQuantity: 50}
	vada := menu.Item{ID: uuid.New(), Name: "Vada", DailyStockQuantity: 40}
	dosa := menu.Item{ID: uuid.New(), Name: "Dosa", DailyStockQuantity: 30}

	t.Run("falls back to baseline without a log", func(t *testing.T) {
		view := Reconcile(day, []menu.Item{idli}, nil)
		require.Len(t, view.Lines, 1)
		line := view.Lines[0]
		assert.Equal(t, 50, line.Prepared)
		assert.Equal(t, 50, line.Remaining)
		assert.Equal(t, StatusInStock, line.Status)
		assert.False(t, line.Logged)
	})

	t.Run("uses log rows and keeps item order", func(t *testing.T) {
		logs := []Log{
			{Date: day, MenuItemID: vada.ID, PreparedQuantity: 40, RemainingQuantity: 0},
			{Date: day, MenuItemID: dosa.ID, PreparedQuantity: 30, RemainingQuantity: 5},
		}
		view := Reconcile(day, []menu.Item{idli, vada, dosa}, logs)
		require.Len(t, view.Lines, 3)

		assert.Equal(t, "Idli", view.Lines[0].Item.Name)
		assert.Equal(t, StatusInStock, view.Lines[0].Status)

		assert.Equal(t, StatusOutOfStock, view.Lines[1].Status)
		assert.True(t, view.Lines[1].Logged)

		assert.Equal(t, StatusLowStock, view.Lines[2].Status)
		assert.True(t, view.Lines[2].LowStockAlert)

		assert.Equal(t, Totals{
			Items:      3,
			InStock:    2,
			OutOfStock: 1,
			Prepared:   120,
			Remaining:  55,
			LowAlerts:  2,
		}, view.Totals)
	})

	t.Run("ignores logs for unknown items", func(t *testing.T) {
		logs := []Log{{Date: day, MenuItemID: uuid.New(), PreparedQuantity: 1, RemainingQuantity: 1}}
		view := Reconcile(day, []menu.Item{idli}, logs)
		assert.Equal(t, 50, view.Lines[0].Remaining)
	})
}
