package storage

import (
	"context"
	"sort"
	"sync"

	"gastopro/internal/core"
)

// MemoryStore is the in-memory backend: same contract as the SQLite
// repository, no persistence. Used by tests and by the memory backend
// for throwaway runs.
type MemoryStore struct {
	mu           sync.Mutex
	transactions []core.Transaction
	accounts     []core.Account
	budgets      map[string]core.Money
	templates    []core.RecurringTemplate
	goals        []core.SavingsGoal
	prefs        map[string][]byte
}

// NewMemoryStore creates a store with the same seed data the SQLite
// migrations install.
func NewMemoryStore() *MemoryStore {
	budgets := make(map[string]core.Money)
	for _, cat := range core.SpendCategories() {
		budgets[cat] = core.Money{}
	}
	return &MemoryStore{
		accounts: core.SeedAccounts(),
		budgets:  budgets,
		prefs:    make(map[string][]byte),
	}
}

func (s *MemoryStore) Close() error { return nil }

// ListTransactions returns the log newest first, matching the SQLite
// ordering (date desc, insertion desc within a date).
func (s *MemoryStore) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.transactions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.String() > out[j].Date.String()
	})
	return out, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *MemoryStore) InsertTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Newest-first within a date, like created_at DESC.
	s.transactions = append([]core.Transaction{t}, s.transactions...)
	return nil
}

func (s *MemoryStore) InsertTransactionPair(_ context.Context, a, b core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]core.Transaction{b, a}, s.transactions...)
	return nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *MemoryStore) HasMaterialized(_ context.Context, date core.Date, tpl core.RecurringTemplate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.Date.String() == date.String() && tpl.Matches(t) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...), nil
}

func (s *MemoryStore) InsertAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
	return nil
}

func (s *MemoryStore) RenameAccount(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].Name = name
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *MemoryStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.AccountID == id {
			return core.ErrAccountInUse
		}
	}
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *MemoryStore) GetBudgets(_ context.Context) (map[string]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]core.Money, len(s.budgets))
	for k, v := range s.budgets {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SetBudget(_ context.Context, category string, limit core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[category] = limit
	return nil
}

func (s *MemoryStore) ListTemplates(_ context.Context) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RecurringTemplate(nil), s.templates...), nil
}

func (s *MemoryStore) InsertTemplate(_ context.Context, tpl core.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append(s.templates, tpl)
	return nil
}

func (s *MemoryStore) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.templates {
		if s.templates[i].ID == id {
			s.templates = append(s.templates[:i], s.templates[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *MemoryStore) ListGoals(_ context.Context) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SavingsGoal(nil), s.goals...), nil
}

func (s *MemoryStore) GetGoal(_ context.Context, id string) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.goals {
		if g.ID == id {
			return g, nil
		}
	}
	return core.SavingsGoal{}, core.ErrNotFound
}

func (s *MemoryStore) InsertGoal(_ context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	return nil
}

func (s *MemoryStore) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == id {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *MemoryStore) DepositToGoal(_ context.Context, goalID string, amount core.Money, companion core.Transaction) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == goalID {
			s.goals[i].Balance.Cents += amount.Cents
			s.transactions = append([]core.Transaction{companion}, s.transactions...)
			return s.goals[i], nil
		}
	}
	return core.SavingsGoal{}, core.ErrNotFound
}

func (s *MemoryStore) GetPreference(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.prefs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) SetPreference(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) ReplaceTransactions(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]core.Transaction(nil), txs...)
	return nil
}

func (s *MemoryStore) ReplaceAccounts(_ context.Context, accounts []core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append([]core.Account(nil), accounts...)
	return nil
}

func (s *MemoryStore) ReplaceBudgets(_ context.Context, budgets map[string]core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = make(map[string]core.Money, len(budgets))
	for k, v := range budgets {
		s.budgets[k] = v
	}
	return nil
}

func (s *MemoryStore) ReplaceTemplates(_ context.Context, templates []core.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append([]core.RecurringTemplate(nil), templates...)
	return nil
}

func (s *MemoryStore) ReplaceGoals(_ context.Context, goals []core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append([]core.SavingsGoal(nil), goals...)
	return nil
}
