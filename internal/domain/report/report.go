// Package report computes shift-partitioned sales reports.
//
// BuildReport is a pure function of its input. The daily breakdown comes from
// the rollup table and is never reconciled with live orders; days where the
// two disagree are listed in Divergence.
package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/pos/backend/internal/domain/order"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Input is the snapshot a report is computed from.
type Input struct {
	Start     time.Time
	End       time.Time
	Shift     Shift
	Location  *time.Location
	Orders    []order.Order
	Summaries []DailySalesSummary
}

// ShiftTotals holds order count and revenue for one shift.
type ShiftTotals struct {
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Summary is the headline of a report.
type Summary struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalOrders   int             `json:"total_orders"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

// ItemSales is one aggregated item.
type ItemSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// DailyBreakdown is one rollup row.
type DailyBreakdown struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// Divergence is a day where the rollup and live orders disagree.
type Divergence struct {
	Date          string          `json:"date"`
	RollupRevenue decimal.Decimal `json:"rollup_revenue"`
	LiveRevenue   decimal.Decimal `json:"live_revenue"`
	RollupOrders  int             `json:"rollup_orders"`
	LiveOrders    int             `json:"live_orders"`
}

// SoldLine is one sold line item with its order metadata.
type SoldLine struct {
	Sequence      int                 `json:"sequence"`
	OrderNumber   string              `json:"order_number"`
	ItemName      string              `json:"item_name"`
	Quantity      int                 `json:"quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	Shift         Shift               `json:"shift"`
	CreatedAt     time.Time           `json:"created_at"`
}

// SalesReport is the result of BuildReport.
type SalesReport struct {
	Start          string           `json:"start"`
	End            string           `json:"end"`
	Shift          Shift            `json:"shift"`
	Summary        Summary          `json:"summary"`
	ItemWiseSales  []ItemSales      `json:"item_wise_sales"`
	DailyBreakdown []DailyBreakdown `json:"daily_breakdown"`
	Shift1         ShiftTotals      `json:"shift1"`
	Shift2         ShiftTotals      `json:"shift2"`
	Divergence     []Divergence     `json:"divergence"`
	Lines          []SoldLine       `json:"-"`
}

// NormalizeItemName trims and NFC-normalizes an item name so that visually
// identical names group together.
func NormalizeItemName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// AverageOrderValue returns revenue/orders rounded to 2dp, or 0 with no orders.
func AverageOrderValue(revenue decimal.Decimal, orders int) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(int64(orders))).Round(2)
}

// BuildReport aggregates the snapshot. Orders outside
// [StartOfDay(Start), EndOfDay(End)] and summaries outside [Start, End] are
// ignored. Order input order is preserved for Lines.
func BuildReport(in Input) SalesReport {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	filter := in.Shift
	if !filter.IsValid() {
		filter = ShiftAll
	}
	from, to := StartOfDay(in.Start, loc), EndOfDay(in.End, loc)
	startKey, endKey := DateKey(from, loc), DateKey(to, loc)

	rep := SalesReport{
		Start:          startKey,
		End:            endKey,
		Shift:          filter,
		Shift1:         ShiftTotals{Revenue: decimal.Zero},
		Shift2:         ShiftTotals{Revenue: decimal.Zero},
		ItemWiseSales:  []ItemSales{},
		DailyBreakdown: []DailyBreakdown{},
		Divergence:     []Divergence{},
		Lines:          []SoldLine{},
	}

	items := make(map[string]*ItemSales)
	live := make(map[string]*ShiftTotals)

	for i := range in.Orders {
		o := &in.Orders[i]
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		shift := ShiftOf(o.CreatedAt, loc)
		bucket := &rep.Shift1
		if shift == Shift2 {
			bucket = &rep.Shift2
		}
		bucket.Orders++
		bucket.Revenue = bucket.Revenue.Add(o.TotalAmount)

		day := DateKey(o.CreatedAt, loc)
		d, ok := live[day]
		if !ok {
			d = &ShiftTotals{Revenue: decimal.Zero}
			live[day] = d
		}
		d.Orders++
		d.Revenue = d.Revenue.Add(o.TotalAmount)

		if !filter.Includes(shift) {
			continue
		}
		for _, it := range o.Items {
			name := NormalizeItemName(it.ItemName)
			revenue := it.LineTotal()
			agg, ok := items[name]
			if !ok {
				agg = &ItemSales{Name: name, Revenue: decimal.Zero}
				items[name] = agg
			}
			agg.Quantity += it.Quantity
			agg.Revenue = agg.Revenue.Add(revenue)

			rep.Lines = append(rep.Lines, SoldLine{
				Sequence:      len(rep.Lines) + 1,
				OrderNumber:   o.OrderNumber,
				ItemName:      name,
				Quantity:      it.Quantity,
				UnitPrice:     it.UnitPrice,
				Subtotal:      revenue,
				PaymentMethod: o.PaymentMethod,
				Shift:         shift,
				CreatedAt:     o.CreatedAt,
			})
		}
	}

	for _, agg := range items {
		rep.ItemWiseSales = append(rep.ItemWiseSales, *agg)
	}
	slices.SortFunc(rep.ItemWiseSales, func(a, b ItemSales) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	switch filter {
	case Shift1:
		rep.Summary.TotalOrders = rep.Shift1.Orders
		rep.Summary.TotalRevenue = rep.Shift1.Revenue
	case Shift2:
		rep.Summary.TotalOrders = rep.Shift2.Orders
		rep.Summary.TotalRevenue = rep.Shift2.Revenue
	default:
		rep.Summary.TotalOrders = rep.Shift1.Orders + rep.Shift2.Orders
		rep.Summary.TotalRevenue = rep.Shift1.Revenue.Add(rep.Shift2.Revenue)
	}
	rep.Summary.AvgOrderValue = AverageOrderValue(rep.Summary.TotalRevenue, rep.Summary.TotalOrders)

	rollup := make(map[string]DailyBreakdown)
	for _, s := range in.Summaries {
		// Rollup dates are calendar days; read them in UTC to avoid shifting.
		key := s.Date.UTC().Format(time.DateOnly)
		if key < startKey || key > endKey {
			continue
		}
		rollup[key] = DailyBreakdown{Date: key, Revenue: s.TotalRevenue, Orders: s.TotalOrders}
	}
	for _, row := range rollup {
		rep.DailyBreakdown = append(rep.DailyBreakdown, row)
	}
	slices.SortFunc(rep.DailyBreakdown, func(a, b DailyBreakdown) int {
		return cmp.Compare(a.Date, b.Date)
	})

	rep.Divergence = divergence(rollup, live)
	return rep
}

// divergence lists days present in either source whose figures differ. A day
// missing from one side counts as zero there.
func divergence(rollup map[string]DailyBreakdown, live map[string]*ShiftTotals) []Divergence {
	days := make(map[string]struct{}, len(rollup)+len(live))
	for k := range rollup {
		days[k] = struct{}{}
	}
	for k := range live {
		days[k] = struct{}{}
	}

	out := []Divergence{}
	for day := range days {
		d := Divergence{Date: day, RollupRevenue: decimal.Zero, LiveRevenue: decimal.Zero}
		if r, ok := rollup[day]; ok {
			d.RollupRevenue, d.RollupOrders = r.Revenue, r.Orders
		}
		if l, ok := live[day]; ok {
			d.LiveRevenue, d.LiveOrders = l.Revenue, l.Orders
		}
		if d.RollupRevenue.Equal(d.LiveRevenue) && d.RollupOrders == d.LiveOrders {
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Divergence) int { return cmp.Compare(a.Date, b.Date) })
	return out
}

// LiveDailyTotals recomputes one day's rollup from live orders. Used by the
// rollup job and the backfill command.
func LiveDailyTotals(day time.Time, orders []order.Order, loc *time.Location) DailySalesSummary {
	if loc == nil {
		loc = time.UTC
	}
	from, to := StartOfDay(day, loc), EndOfDay(day, loc)
	y, m, d := from.Date()
	out := DailySalesSummary{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), TotalRevenue: decimal.Zero}
	for i := range orders {
		o := &orders[i]
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		out.TotalOrders++
		out.TotalRevenue = out.TotalRevenue.Add(o.TotalAmount)
	}
	return out
}
