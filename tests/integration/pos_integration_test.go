package integration

import (
	"context"
	"os"
	"testing"
	"time"

	apporder "github.com/pos/backend/internal/application/order"
	appreport "github.com/pos/backend/internal/application/report"
	appstock "github.com/pos/backend/internal/application/stock"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/stock"
	"github.com/pos/backend/internal/infrastructure/cache"
	"github.com/pos/backend/internal/infrastructure/persistence"
	"github.com/pos/backend/internal/infrastructure/scheduler"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func price(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newIngestion(t *testing.T, repo order.Repository) *apporder.IngestionService {
	t.Helper()
	reserver := cache.NewInMemoryOrderNumberReserver(time.Hour)
	t.Cleanup(func() { _ = reserver.Close() })
	return apporder.NewIngestionService(repo, order.NewNumberGenerator(reserver), nil)
}

func cart(payment string, lines ...apporder.CartLine) apporder.SubmitOrderCommand {
	return apporder.SubmitOrderCommand{PaymentMethod: payment, Lines: lines}
}

func TestOrderLifecycle_Integration(t *testing.T) {
	testDB := NewSharedTestDB(t)
	ctx := context.Background()

	repo := persistence.NewGormOrderRepository(testDB.DB)
	ingestion := newIngestion(t, repo)
	orders := apporder.NewOrderService(repo)

	menuID := testDB.CreateMenuItem("Sambar Rice", "120", 40, true, time.Now())
	result, err := ingestion.SubmitOrder(ctx, cart("CASH",
		apporder.CartLine{MenuItemID: &menuID, Name: "Sambar Rice", UnitPrice: price("120"), Quantity: 2},
		apporder.CartLine{Name: "  Buttermilk ", UnitPrice: price("25.50"), Quantity: 1},
	))
	require.NoError(t, err)
	assert.True(t, result.TotalAmount.Equal(dec("265.50")))
	assert.Regexp(t, `^ORD-\d{8}-\d{4}$`, result.OrderNumber)

	t.Run("stored with items in cart order", func(t *testing.T) {
		got, err := orders.GetOrder(ctx, result.OrderID)
		require.NoError(t, err)
		assert.Equal(t, string(order.StatusPending), got.Status)
		assert.Equal(t, "cash", got.PaymentMethod)
		require.Len(t, got.Items, 2)
		assert.Equal(t, "Sambar Rice", got.Items[0].ItemName)
		require.NotNil(t, got.Items[0].MenuItemID)
		assert.Equal(t, menuID, *got.Items[0].MenuItemID)
		assert.Equal(t, "Buttermilk", got.Items[1].ItemName)
		assert.Nil(t, got.Items[1].MenuItemID)
		assert.True(t, got.Items[0].Subtotal.Equal(dec("240")))
	})

	t.Run("pending count", func(t *testing.T) {
		count, err := orders.CountPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("place is one way", func(t *testing.T) {
		placed, err := orders.MarkPlaced(ctx, result.OrderID)
		require.NoError(t, err)
		assert.Equal(t, string(order.StatusPlaced), placed.Status)

		_, err = orders.MarkPlaced(ctx, result.OrderID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		_, err = orders.UpdateStatus(ctx, result.OrderID, "pending")
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		count, err := orders.CountPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("status filter", func(t *testing.T) {
		placed := order.StatusPlaced
		list, err := orders.ListOrders(ctx, apporder.OrderFilter{Status: &placed})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, result.OrderID, list[0].ID)

		pending := order.StatusPending
		list, err = orders.ListOrders(ctx, apporder.OrderFilter{Status: &pending})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete removes order and items", func(t *testing.T) {
		require.NoError(t, orders.Delete(ctx, result.OrderID))

		_, err := orders.GetOrder(ctx, result.OrderID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var items int64
		require.NoError(t, testDB.DB.Table("order_items").Where("order_id = ?", result.OrderID).Count(&items).Error)
		assert.Zero(t, items)

		assert.ErrorIs(t, orders.Delete(ctx, result.OrderID), shared.ErrNotFound)
	})
}

func TestSubmitOrder_RejectsBeforeWriting_Integration(t *testing.T) {
	testDB := NewSharedTestDB(t)
	ctx := context.Background()
	repo := persistence.NewGormOrderRepository(testDB.DB)
	ingestion := newIngestion(t, repo)

	cases := map[string]apporder.SubmitOrderCommand{
		"empty cart":      cart("cash"),
		"unknown payment": cart("card", apporder.CartLine{Name: "Tea", UnitPrice: price("10"), Quantity: 1}),
		"zero quantity":   cart("cash", apporder.CartLine{Name: "Tea", UnitPrice: price("10"), Quantity: 0}),
		"negative price":  cart("online", apporder.CartLine{Name: "Tea", UnitPrice: price("-1"), Quantity: 1}),
		"blank item name": cart("online", apporder.CartLine{Name: "   ", UnitPrice: price("10"), Quantity: 1}),
		"missing payment": cart("", apporder.CartLine{Name: "Tea", UnitPrice: price("10"), Quantity: 1}),
	}
	for name, cmd := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ingestion.SubmitOrder(ctx, cmd)
			assert.ErrorIs(t, err, shared.ErrInput)
		})
	}

	var count int64
	require.NoError(t, testDB.DB.Table("orders").Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrderRepository_DuplicateNumber_Integration(t *testing.T) {
	testDB := NewSharedTestDB(t)
	ctx := context.Background()
	repo := persistence.NewGormOrderRepository(testDB.DB)

	lines := []order.Line{{Name: "Tea", UnitPrice: dec("10"), Quantity: 1}}
	first, err := order.NewOrder("ORD-20260120-1001", order.PaymentCash, lines, time.Now())
	require.NoError(t, err)
	second, err := order.NewOrder("ORD-20260120-1001", order.PaymentOnline, lines, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, second), shared.ErrAlreadyExists)
}

func TestStockView_Integration(t *testing.T) {
	testDB := NewSharedTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	dosa := testDB.CreateMenuItem("Dosa", "60", 50, true, created)
	idli := testDB.CreateMenuItem("Idli", "40", 40, true, created.Add(time.Minute))
	vada := testDB.CreateMenuItem("Vada", "30", 20, false, created.Add(2*time.Minute))

	testDB.CreateStockLog(day, dosa, 50, 5)
	testDB.CreateStockLog(day, idli, 40, 0)
	// Another day's log must not leak into this one.
	testDB.CreateStockLog(day.AddDate(0, 0, -1), vada, 20, 1)

	svc := appstock.NewStockService(
		persistence.NewGormMenuRepository(testDB.DB),
		persistence.NewGormStockLogRepository(testDB.DB),
	)
	view, degraded, err := svc.GetStockView(ctx, day)
	require.NoError(t, err)
	assert.False(t, degraded)
	require.Len(t, view.Lines, 3)

	assert.Equal(t, dosa, view.Lines[0].Item.ID)
	assert.Equal(t, stock.StatusLowStock, view.Lines[0].Status)
	assert.True(t, view.Lines[0].LowStockAlert)

	assert.Equal(t, idli, view.Lines[1].Item.ID)
	assert.Equal(t, stock.StatusOutOfStock, view.Lines[1].Status)

	assert.Equal(t, vada, view.Lines[2].Item.ID)
	assert.False(t, view.Lines[2].Logged)
	assert.Equal(t, 20, view.Lines[2].Remaining)
	assert.Equal(t, stock.StatusInStock, view.Lines[2].Status)

	assert.Equal(t, 2, view.Totals.LowAlerts)
	assert.Equal(t, 1, view.Totals.OutOfStock)

	alerts, err := svc.LowStockAlertCount(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, alerts)
}

func TestRollupAndReport_Integration(t *testing.T) {
	testDB := NewSharedTestDB(t)
	ctx := context.Background()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	orderRepo := persistence.NewGormOrderRepository(testDB.DB)
	summaryRepo := persistence.NewGormDailySummaryRepository(testDB.DB)
	ingestion := newIngestion(t, orderRepo)

	for _, cmd := range []apporder.SubmitOrderCommand{
		cart("cash", apporder.CartLine{Name: "Meals", UnitPrice: price("150"), Quantity: 2}),
		cart("online", apporder.CartLine{Name: "Meals", UnitPrice: price("150"), Quantity: 1},
			apporder.CartLine{Name: "Coffee", UnitPrice: price("30"), Quantity: 3}),
	} {
		_, err := ingestion.SubmitOrder(ctx, cmd)
		require.NoError(t, err)
	}

	today := report.StartOfDay(time.Now(), loc)
	executor := scheduler.NewRollupExecutor(orderRepo, summaryRepo, nil, time.Minute, loc, zap.NewNop())

	t.Run("rollup writes and replaces the day row", func(t *testing.T) {
		summary, err := executor.RollupDay(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TotalOrders)
		assert.True(t, summary.TotalRevenue.Equal(dec("540")))

		_, err = executor.RollupDay(ctx, today)
		require.NoError(t, err)

		rows, err := summaryRepo.FindBetween(ctx, today, today)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 2, rows[0].TotalOrders)
		assert.True(t, rows[0].TotalRevenue.Equal(dec("540")))
	})

	t.Run("report aggregates items", func(t *testing.T) {
		stockSvc := appstock.NewStockService(
			persistence.NewGormMenuRepository(testDB.DB),
			persistence.NewGormStockLogRepository(testDB.DB),
		)
		svc := appreport.NewReportService(orderRepo, summaryRepo, stockSvc, loc)

		rep, err := svc.BuildReport(ctx, appreport.SalesReportQuery{Start: today, End: today})
		require.NoError(t, err)
		assert.Equal(t, 2, rep.Summary.TotalOrders)
		assert.True(t, rep.Summary.TotalRevenue.Equal(dec("540")))
		assert.True(t, rep.Summary.AvgOrderValue.Equal(dec("270")))

		byName := map[string]report.ItemSales{}
		for _, item := range rep.ItemWiseSales {
			byName[item.Name] = item
		}
		assert.Equal(t, 3, byName["Meals"].Quantity)
		assert.True(t, byName["Meals"].Revenue.Equal(dec("450")))
		assert.Equal(t, 3, byName["Coffee"].Quantity)
		require.Len(t, rep.DailyBreakdown, 1)
	})
}

func TestDailySummaryRepository_Upsert_Integration(t *testing.T) {
	testDB := NewSharedTestDB(t)
	ctx := context.Background()
	repo := persistence.NewGormDailySummaryRepository(testDB.DB)

	day := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, report.DailySalesSummary{Date: day, TotalRevenue: dec("100"), TotalOrders: 1}))
	require.NoError(t, repo.Upsert(ctx, report.DailySalesSummary{Date: day, TotalRevenue: dec("250.75"), TotalOrders: 3}))
	require.NoError(t, repo.Upsert(ctx, report.DailySalesSummary{Date: day.AddDate(0, 0, 2), TotalRevenue: dec("10"), TotalOrders: 1}))

	rows, err := repo.FindBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-01-20", rows[0].Date.Format(time.DateOnly))
	assert.Equal(t, 3, rows[0].TotalOrders)
	assert.True(t, rows[0].TotalRevenue.Equal(dec("250.75")))
}
