package analytics

import (
	"gastopro/internal/core"
)

// Budget status per category.
const (
	BudgetUnder BudgetStatus = "under"
	BudgetNear  BudgetStatus = "near"
	BudgetOver  BudgetStatus = "over"
)

type BudgetStatus string

// BudgetLine is one category row of the budget report.
type BudgetLine struct {
	Category string       `json:"category"`
	Spent    core.Money   `json:"spent"`
	Budget   core.Money   `json:"budget"`
	Percent  int          `json:"percent"`
	Status   BudgetStatus `json:"status"`
}

// ClassifyBudget computes the spent/budget percentage and status.
// Spending strictly above the budget is over; at or above 80% is near.
// A zero budget means the category is untracked: always 0%, never
// over, regardless of spending.
func ClassifyBudget(spent, budget core.Money) (int, BudgetStatus) {
	if budget.Cents <= 0 {
		return 0, BudgetUnder
	}
	percent := int(roundHalfAway(float64(spent.Cents) / float64(budget.Cents) * 100))
	switch {
	case spent.Cents > budget.Cents:
		return percent, BudgetOver
	case spent.Cents*10 >= budget.Cents*8:
		return percent, BudgetNear
	default:
		return percent, BudgetUnder
	}
}

// BudgetReport builds one line per budgetable category in the fixed
// display order, joining the month's spending with the configured
// ceilings.
func BudgetReport(spent map[string]core.Money, budgets map[string]core.Money) []BudgetLine {
	categories := core.SpendCategories()
	out := make([]BudgetLine, 0, len(categories))
	for _, cat := range categories {
		line := BudgetLine{
			Category: cat,
			Spent:    spent[cat],
			Budget:   budgets[cat],
		}
		line.Percent, line.Status = ClassifyBudget(line.Spent, line.Budget)
		out = append(out, line)
	}
	return out
}
