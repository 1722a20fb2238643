// Package analytics holds the derived computation layer: every number
// the dashboard shows is recomputed from the transaction log by the
// pure functions in this package. Nothing here touches storage, the
// clock or the network; callers pass the data and the reference time.
package analytics

import (
	"time"

	"gastopro/internal/core"
)

// MonthWindow returns the half-open civil-date interval
// [first of month, first of next month) in UTC.
func MonthWindow(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// DaysInMonth returns the calendar length of the given month.
func DaysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FilterMonth returns the transactions dated inside the given month,
// preserving input order.
func FilterMonth(txs []core.Transaction, year, month int) []core.Transaction {
	start, end := MonthWindow(year, month)
	var out []core.Transaction
	for _, t := range txs {
		d := t.Date.Time
		if !d.Before(start) && d.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

// PrevMonth steps one month back with year rollover.
func PrevMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}
