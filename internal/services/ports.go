// Package services orchestrates domain operations across storage and
// the event stream. Services validate fully before touching storage,
// persist first, then publish events best-effort.
package services

import (
	"context"

	"gastopro/internal/core"
)

// Store is the persistence port the services (and HTTP layer) consume.
// Implemented by storage.SQLiteRepository and storage.MemoryStore.
type Store interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	InsertTransaction(ctx context.Context, t core.Transaction) error
	InsertTransactionPair(ctx context.Context, a, b core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	HasMaterialized(ctx context.Context, date core.Date, tpl core.RecurringTemplate) (bool, error)

	ListAccounts(ctx context.Context) ([]core.Account, error)
	InsertAccount(ctx context.Context, a core.Account) error
	RenameAccount(ctx context.Context, id, name string) error
	DeleteAccount(ctx context.Context, id string) error

	GetBudgets(ctx context.Context) (map[string]core.Money, error)
	SetBudget(ctx context.Context, category string, limit core.Money) error

	ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
	InsertTemplate(ctx context.Context, tpl core.RecurringTemplate) error
	DeleteTemplate(ctx context.Context, id string) error

	ListGoals(ctx context.Context) ([]core.SavingsGoal, error)
	GetGoal(ctx context.Context, id string) (core.SavingsGoal, error)
	InsertGoal(ctx context.Context, g core.SavingsGoal) error
	DeleteGoal(ctx context.Context, id string) error
	DepositToGoal(ctx context.Context, goalID string, amount core.Money, companion core.Transaction) (core.SavingsGoal, error)

	GetPreference(ctx context.Context, key string) ([]byte, bool, error)
	SetPreference(ctx context.Context, key string, value []byte) error

	ReplaceTransactions(ctx context.Context, txs []core.Transaction) error
	ReplaceAccounts(ctx context.Context, accounts []core.Account) error
	ReplaceBudgets(ctx context.Context, budgets map[string]core.Money) error
	ReplaceTemplates(ctx context.Context, templates []core.RecurringTemplate) error
	ReplaceGoals(ctx context.Context, goals []core.SavingsGoal) error

	Close() error
}

// EventPublisher is the outbound event port. A nil publisher is valid:
// events are skipped and the operation still succeeds.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, transactionID, op string) error
}
