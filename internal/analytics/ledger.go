package analytics

import (
	"gastopro/internal/core"
)

// AccountBalance is the folded balance of one account.
type AccountBalance struct {
	AccountID string     `json:"accountId"`
	Name      string     `json:"name"`
	Balance   core.Money `json:"balance"`
}

// Balances folds every account's balance out of the full transaction
// log in a single pass: income adds, expense subtracts, and transfer
// legs (one expense leg on the source, one income leg on the
// destination) cancel out across the set. Transactions referencing an
// unknown account land on the first configured account.
func Balances(all []core.Transaction, accounts []core.Account) []AccountBalance {
	byID := make(map[string]int, len(accounts))
	out := make([]AccountBalance, len(accounts))
	for i, a := range accounts {
		byID[a.ID] = i
		out[i] = AccountBalance{AccountID: a.ID, Name: a.Name}
	}
	if len(accounts) == 0 {
		return out
	}

	for _, t := range all {
		idx, ok := byID[t.AccountID]
		if !ok {
			idx = 0
		}
		if t.Kind == core.KindIncome {
			out[idx].Balance.Cents += t.Amount.Cents
		} else {
			out[idx].Balance.Cents -= t.Amount.Cents
		}
	}
	return out
}

// TotalBalance sums all account balances.
func TotalBalance(balances []AccountBalance) core.Money {
	var total int64
	for _, b := range balances {
		total += b.Balance.Cents
	}
	return core.Money{Cents: total}
}
