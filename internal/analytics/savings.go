package analytics

import (
	"time"

	"gastopro/internal/core"
)

// FirstMillionCents is the lifetime-savings threshold for the first
// million achievement, in minor units.
const FirstMillionCents int64 = 1_000_000 * 100

// WeeklyChallenge is the gamified week-over-week savings target.
type WeeklyChallenge struct {
	SavedThisWeek core.Money `json:"savedThisWeek"`
	SavedLastWeek core.Money `json:"savedLastWeek"`
	Target        core.Money `json:"target"`
	Percent       int        `json:"percent"`
}

// Achievement is one unlockable badge.
type Achievement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Unlocked bool   `json:"unlocked"`
}

// IsSavingsDeposit reports whether the transaction counts toward
// savings metrics: an expense in the ahorro category. Kind alone is
// not enough, and income into ahorro does not count.
func IsSavingsDeposit(t core.Transaction) bool {
	return t.Kind == core.KindExpense && t.Category == core.CategoryAhorro
}

// TotalSaved sums every savings deposit across all time.
func TotalSaved(txs []core.Transaction) core.Money {
	var total int64
	for _, t := range txs {
		if IsSavingsDeposit(t) {
			total += t.Amount.Cents
		}
	}
	return core.Money{Cents: total}
}

// StreakDays counts consecutive calendar days with at least one
// savings deposit, walking back from today. The walk is strict: a day
// without a deposit ends it, and no deposit today means zero even if
// yesterday closed a long run.
func StreakDays(txs []core.Transaction, today time.Time) int {
	days := make(map[string]bool)
	for _, t := range txs {
		if IsSavingsDeposit(t) {
			days[t.Date.String()] = true
		}
	}

	streak := 0
	day := core.DateOf(today).Time
	for days[day.Format(time.DateOnly)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// StartOfWeek returns the Monday 00:00 opening the week containing t,
// in t's location.
func StartOfWeek(t time.Time) time.Time {
	diff := 1 - int(t.Weekday())
	if t.Weekday() == time.Sunday {
		diff = -6
	}
	year, month, day := t.Date()
	return time.Date(year, month, day+diff, 0, 0, 0, 0, t.Location())
}

// Challenge computes the weekly savings challenge for the week
// containing now. The target is last week's savings plus 10%, rounded
// up, so the bar always moves. Progress caps at 100; with no target,
// any saving at all counts as full marks.
//
// The window anchors on now's civil date, so a server clock in any
// timezone buckets deposits into the same week as their stored dates.
func Challenge(txs []core.Transaction, now time.Time) WeeklyChallenge {
	thisStart := StartOfWeek(core.DateOf(now).Time)
	nextStart := thisStart.AddDate(0, 0, 7)
	lastStart := thisStart.AddDate(0, 0, -7)

	var thisWeek, lastWeek int64
	for _, t := range txs {
		if !IsSavingsDeposit(t) {
			continue
		}
		d := t.Date.Time
		switch {
		case !d.Before(thisStart) && d.Before(nextStart):
			thisWeek += t.Amount.Cents
		case !d.Before(lastStart) && d.Before(thisStart):
			lastWeek += t.Amount.Cents
		}
	}

	target := (lastWeek*11 + 9) / 10 // ceil(lastWeek * 1.1)

	percent := 0
	switch {
	case target > 0:
		percent = int((thisWeek*100 + target/2) / target)
		if percent > 100 {
			percent = 100
		}
	case thisWeek > 0:
		percent = 100
	}

	return WeeklyChallenge{
		SavedThisWeek: core.Money{Cents: thisWeek},
		SavedLastWeek: core.Money{Cents: lastWeek},
		Target:        core.Money{Cents: target},
		Percent:       percent,
	}
}

// Achievements evaluates every badge against the current state.
// Badges are stateless: they lock again if the underlying condition
// stops holding.
func Achievements(streakDays int, totalSaved core.Money, goals []core.SavingsGoal) []Achievement {
	overshoot := false
	for _, g := range goals {
		// balance >= 1.2 * target, on cents.
		if g.Target.Cents > 0 && g.Balance.Cents*10 >= g.Target.Cents*12 {
			overshoot = true
			break
		}
	}

	return []Achievement{
		{ID: "streak-7", Title: "Racha de 7 días de ahorro", Unlocked: streakDays >= 7},
		{ID: "first-million", Title: "Primer millón ahorrado", Unlocked: totalSaved.Cents >= FirstMillionCents},
		{ID: "goal-overshoot", Title: "Meta superada en 20%", Unlocked: overshoot},
	}
}
