package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gastopro/internal/core"
)

func expense(id string, date core.Date, category string, cents int64) core.Transaction {
	return core.Transaction{
		ID: id, Date: date, Kind: core.KindExpense,
		Category: category, Amount: core.Money{Cents: cents}, AccountID: "cash",
	}
}

func income(id string, date core.Date, cents int64) core.Transaction {
	return core.Transaction{
		ID: id, Date: date, Kind: core.KindIncome,
		Category: core.CategoryIngresos, Amount: core.Money{Cents: cents}, AccountID: "cash",
	}
}

func transferLegs(date core.Date, cents int64, from, to string) []core.Transaction {
	return []core.Transaction{
		{ID: "out", Date: date, Kind: core.KindExpense, Category: core.CategoryTransfer,
			Amount: core.Money{Cents: cents}, Tags: []string{core.CategoryTransfer}, AccountID: from},
		{ID: "in", Date: date, Kind: core.KindIncome, Category: core.CategoryTransfer,
			Amount: core.Money{Cents: cents}, Tags: []string{core.CategoryTransfer}, AccountID: to},
	}
}

func TestSummarize(t *testing.T) {
	d := core.NewDate(2025, 5, 10)
	txs := []core.Transaction{
		income("i1", d, 100000),
		expense("e1", d, core.CategoryAlimentos, 30000),
		expense("e2", d, core.CategoryTransporte, 20000),
	}

	totals := Summarize(txs)
	assert.Equal(t, int64(100000), totals.Income.Cents)
	assert.Equal(t, int64(50000), totals.Expense.Cents)
	assert.Equal(t, int64(50000), totals.Net.Cents)
}

func TestSummarizeExcludesTransferLegs(t *testing.T) {
	d := core.NewDate(2025, 5, 10)
	txs := []core.Transaction{income("i1", d, 100000)}
	txs = append(txs, transferLegs(d, 40000, "cash", "debit")...)

	totals := Summarize(txs)
	assert.Equal(t, int64(100000), totals.Income.Cents, "transfer income leg must not count")
	assert.Zero(t, totals.Expense.Cents, "transfer expense leg must not count")
	assert.Equal(t, int64(100000), totals.Net.Cents)
}

func TestSummarizeNetCanGoNegative(t *testing.T) {
	d := core.NewDate(2025, 5, 10)
	totals := Summarize([]core.Transaction{
		income("i1", d, 10000),
		expense("e1", d, core.CategoryOtros, 25000),
	})
	assert.Equal(t, int64(-15000), totals.Net.Cents)
}

func TestCategoryBreakdown(t *testing.T) {
	d := core.NewDate(2025, 5, 10)
	txs := []core.Transaction{
		expense("e1", d, core.CategoryAlimentos, 10000),
		expense("e2", d, core.CategorySalud, 50000),
		expense("e3", d, core.CategoryAlimentos, 15000),
		income("i1", d, 99999),
	}
	txs = append(txs, transferLegs(d, 70000, "cash", "debit")...)

	rows := CategoryBreakdown(txs)
	assert.Len(t, rows, 2, "income and transfers never appear")
	assert.Equal(t, core.CategorySalud, rows[0].Category)
	assert.Equal(t, int64(50000), rows[0].Amount.Cents)
	assert.Equal(t, core.CategoryAlimentos, rows[1].Category)
	assert.Equal(t, int64(25000), rows[1].Amount.Cents)
}

func TestCategoryBreakdownTiesKeepFirstSeenOrder(t *testing.T) {
	d := core.NewDate(2025, 5, 10)
	rows := CategoryBreakdown([]core.Transaction{
		expense("e1", d, core.CategoryServicios, 10000),
		expense("e2", d, core.CategoryVivienda, 10000),
	})
	assert.Equal(t, core.CategoryServicios, rows[0].Category)
	assert.Equal(t, core.CategoryVivienda, rows[1].Category)
}

func TestTrendSeries(t *testing.T) {
	txs := []core.Transaction{
		expense("e1", core.NewDate(2025, 5, 5), core.CategoryOtros, 1000),
		expense("e2", core.NewDate(2025, 3, 5), core.CategoryOtros, 2000),
		income("i1", core.NewDate(2024, 12, 5), 5000),
		// Outside the window entirely.
		expense("e3", core.NewDate(2024, 11, 5), core.CategoryOtros, 9999),
	}

	points := TrendSeries(txs, 2025, 5)
	assert.Len(t, points, 6)

	assert.Equal(t, 2024, points[0].Year)
	assert.Equal(t, 12, points[0].Month)
	assert.Equal(t, int64(5000), points[0].Income.Cents)

	assert.Equal(t, 2025, points[5].Year)
	assert.Equal(t, 5, points[5].Month)
	assert.Equal(t, int64(1000), points[5].Expense.Cents)

	// Quiet months show up as zeros, not gaps.
	assert.Equal(t, 2, points[2].Month)
	assert.Zero(t, points[2].Income.Cents)
	assert.Zero(t, points[2].Expense.Cents)
}

func TestProjectionCurrentMonth(t *testing.T) {
	// Day 10 of a 30-day month, net 3000 so far: 300/day -> 9000.
	today := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	got := Projection(core.Money{Cents: 3000}, 2025, 6, today)
	assert.Equal(t, int64(9000), got.Cents)
}

func TestProjectionPastMonthAssumesMidMonth(t *testing.T) {
	// Not the current month: day index 15 over 31 days.
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	got := Projection(core.Money{Cents: 1500}, 2025, 1, today)
	assert.Equal(t, int64(3100), got.Cents)
}

func TestProjectionNegativeNet(t *testing.T) {
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	got := Projection(core.Money{Cents: -3000}, 2025, 6, today)
	assert.Equal(t, int64(-9000), got.Cents)
}

func TestCompareExpenses(t *testing.T) {
	txs := []core.Transaction{
		expense("e1", core.NewDate(2025, 5, 5), core.CategoryOtros, 12000),
		expense("e2", core.NewDate(2025, 4, 5), core.CategoryOtros, 10000),
	}

	cmp := CompareExpenses(txs, 2025, 5)
	assert.Equal(t, int64(12000), cmp.Expense.Cents)
	assert.Equal(t, int64(10000), cmp.PrevExpense.Cents)
	assert.Equal(t, 20, cmp.DeltaPercent)
}

func TestCompareExpensesEmptyPreviousMonth(t *testing.T) {
	txs := []core.Transaction{
		expense("e1", core.NewDate(2025, 5, 5), core.CategoryOtros, 12000),
	}

	cmp := CompareExpenses(txs, 2025, 5)
	assert.Zero(t, cmp.DeltaPercent, "no previous spending means no percentage")
	assert.Zero(t, cmp.PrevExpense.Cents)
}
