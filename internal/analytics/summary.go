package analytics

import (
	"sort"
	"time"

	"gastopro/internal/core"
)

// Totals is the headline income/expense/net triple for a set of
// transactions. Net may be negative.
type Totals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

// CategoryAmount is one row of the spending breakdown.
type CategoryAmount struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

// TrendPoint is one month of the income/expense trend series.
type TrendPoint struct {
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

// MonthComparison relates a month's spending to the previous month's.
type MonthComparison struct {
	Expense     core.Money `json:"expense"`
	PrevExpense core.Money `json:"prevExpense"`
	// DeltaPercent is the signed change vs the previous month; 0 when
	// the previous month had no spending.
	DeltaPercent int `json:"deltaPercent"`
}

// Summarize folds income and expense totals. Transfer legs move money
// between accounts without changing net worth, so they count on
// neither side.
func Summarize(txs []core.Transaction) Totals {
	var income, expense int64
	for _, t := range txs {
		if t.IsTransfer() {
			continue
		}
		switch t.Kind {
		case core.KindIncome:
			income += t.Amount.Cents
		case core.KindExpense:
			expense += t.Amount.Cents
		}
	}
	return Totals{
		Income:  core.Money{Cents: income},
		Expense: core.Money{Cents: expense},
		Net:     core.Money{Cents: income - expense},
	}
}

// SpentByCategory sums expense amounts per category, excluding
// transfer legs.
func SpentByCategory(txs []core.Transaction) map[string]core.Money {
	spent := make(map[string]core.Money)
	for _, t := range txs {
		if t.Kind != core.KindExpense || t.IsTransfer() {
			continue
		}
		spent[t.Category] = spent[t.Category].Add(t.Amount)
	}
	return spent
}

// CategoryBreakdown returns per-category expense totals sorted by
// descending amount. Ties keep first-seen order, so repeated renders
// of the same data never flicker.
func CategoryBreakdown(txs []core.Transaction) []CategoryAmount {
	totals := make(map[string]int64)
	var order []string
	for _, t := range txs {
		if t.Kind != core.KindExpense || t.IsTransfer() {
			continue
		}
		if _, seen := totals[t.Category]; !seen {
			order = append(order, t.Category)
		}
		totals[t.Category] += t.Amount.Cents
	}

	out := make([]CategoryAmount, 0, len(order))
	for _, cat := range order {
		out = append(out, CategoryAmount{Category: cat, Amount: core.Money{Cents: totals[cat]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// TrendSeries returns exactly six monthly points ending at the selected
// month. Months with no activity appear as zero points.
func TrendSeries(all []core.Transaction, year, month int) []TrendPoint {
	points := make([]TrendPoint, 0, 6)
	y, m := year, month
	for i := 0; i < 5; i++ {
		y, m = PrevMonth(y, m)
	}
	for i := 0; i < 6; i++ {
		totals := Summarize(FilterMonth(all, y, m))
		points = append(points, TrendPoint{
			Year:    y,
			Month:   m,
			Income:  totals.Income,
			Expense: totals.Expense,
			Net:     totals.Net,
		})
		if m == 12 {
			y, m = y+1, 1
		} else {
			m++
		}
	}
	return points
}

// Projection extrapolates a month's net to its full length. For the
// month today falls in, the day index is today's day (floored at 1);
// for any other month a mid-month index of min(15, length) is assumed,
// since the true elapsed fraction is unknowable.
func Projection(net core.Money, year, month int, today time.Time) core.Money {
	dim := DaysInMonth(year, month)
	dayIdx := 15
	if dayIdx > dim {
		dayIdx = dim
	}
	if today.Year() == year && int(today.Month()) == month {
		dayIdx = today.Day()
		if dayIdx < 1 {
			dayIdx = 1
		}
	}
	avgDaily := float64(net.Cents) / float64(dayIdx)
	return core.Money{Cents: roundHalfAway(avgDaily * float64(dim))}
}

// CompareExpenses relates the selected month's spending to the month
// before it.
func CompareExpenses(all []core.Transaction, year, month int) MonthComparison {
	cur := Summarize(FilterMonth(all, year, month)).Expense
	py, pm := PrevMonth(year, month)
	prev := Summarize(FilterMonth(all, py, pm)).Expense

	delta := 0
	if prev.Cents > 0 {
		delta = int(roundHalfAway(float64(cur.Cents-prev.Cents) / float64(prev.Cents) * 100))
	}
	return MonthComparison{Expense: cur, PrevExpense: prev, DeltaPercent: delta}
}

func roundHalfAway(f float64) int64 {
	if f < 0 {
		return -int64(-f + 0.5)
	}
	return int64(f + 0.5)
}
