package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastopro/internal/analytics"
	"gastopro/internal/core"
	"gastopro/internal/log"
	"gastopro/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Component: log.ComponentApp})
}

type capturedEvent struct {
	TransactionID string
	Op            string
}

type fakePublisher struct {
	events []capturedEvent
	err    error
}

func (f *fakePublisher) PublishTransactionEvent(_ context.Context, transactionID, op string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, capturedEvent{TransactionID: transactionID, Op: op})
	return nil
}

func TestCreateTransaction(t *testing.T) {
	store := storage.NewMemoryStore()
	events := &fakePublisher{}
	svc := NewTransactionService(store, events, testLogger())

	tx, err := svc.Create(context.Background(), CreateParams{
		Date:      core.NewDate(2025, 6, 10),
		Kind:      core.KindExpense,
		Category:  core.CategoryAlimentos,
		Note:      "  almuerzo  ",
		Amount:    core.Money{Cents: 12500},
		AccountID: "debit",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "almuerzo", tx.Note, "note is trimmed")
	assert.Equal(t, "debit", tx.AccountID)

	stored, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, stored.ID)

	require.Len(t, events.events, 1)
	assert.Equal(t, capturedEvent{TransactionID: tx.ID, Op: "create"}, events.events[0])
}

func TestCreateTransactionResolvesUnknownAccount(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewTransactionService(store, nil, testLogger())

	tx, err := svc.Create(context.Background(), CreateParams{
		Date:      core.NewDate(2025, 6, 10),
		Kind:      core.KindIncome,
		Category:  core.CategoryIngresos,
		Amount:    core.Money{Cents: 100},
		AccountID: "no-such-account",
	})
	require.NoError(t, err)
	assert.Equal(t, "cash", tx.AccountID, "dangling account ids land on the first account")
}

func TestCreateTransactionValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewTransactionService(store, nil, testLogger())

	_, err := svc.Create(context.Background(), CreateParams{
		Date:     core.NewDate(2025, 6, 10),
		Kind:     "refund",
		Category: core.CategoryOtros,
		Amount:   core.Money{Cents: 100},
	})
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	_, err = svc.Create(context.Background(), CreateParams{
		Date:     core.NewDate(2025, 6, 10),
		Kind:     core.KindExpense,
		Category: core.CategoryOtros,
		Amount:   core.Money{Cents: 0},
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	txs, _ := store.ListTransactions(context.Background())
	assert.Empty(t, txs, "nothing persisted on validation failure")
}

func TestDeleteTransaction(t *testing.T) {
	store := storage.NewMemoryStore()
	events := &fakePublisher{}
	svc := NewTransactionService(store, events, testLogger())

	tx, err := svc.Create(context.Background(), CreateParams{
		Date: core.NewDate(2025, 6, 10), Kind: core.KindExpense,
		Category: core.CategoryOtros, Amount: core.Money{Cents: 100},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), tx.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), tx.ID), core.ErrNotFound)

	require.Len(t, events.events, 2)
	assert.Equal(t, "delete", events.events[1].Op)
}

func TestListTransactionsFilters(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewTransactionService(store, nil, testLogger())
	ctx := context.Background()

	mk := func(date core.Date, kind core.Kind, category, note string) {
		_, err := svc.Create(ctx, CreateParams{
			Date: date, Kind: kind, Category: category, Note: note,
			Amount: core.Money{Cents: 100}, AccountID: "cash",
		})
		require.NoError(t, err)
	}
	mk(core.NewDate(2025, 6, 1), core.KindExpense, core.CategoryAlimentos, "feria")
	mk(core.NewDate(2025, 6, 15), core.KindIncome, core.CategoryIngresos, "sueldo")
	mk(core.NewDate(2025, 5, 20), core.KindExpense, core.CategoryTransporte, "bencina")

	june, err := svc.List(ctx, ListFilter{Year: 2025, Month: 6})
	require.NoError(t, err)
	assert.Len(t, june, 2)

	expenses, err := svc.List(ctx, ListFilter{Kind: core.KindExpense})
	require.NoError(t, err)
	assert.Len(t, expenses, 2)

	byQuery, err := svc.List(ctx, ListFilter{Query: "SUELDO"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "sueldo", byQuery[0].Note)

	byCategory, err := svc.List(ctx, ListFilter{Query: "transporte"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)
}

func TestTransfer(t *testing.T) {
	store := storage.NewMemoryStore()
	events := &fakePublisher{}
	svc := NewTransactionService(store, events, testLogger())
	ctx := context.Background()

	legs, err := svc.Transfer(ctx, TransferParams{
		Date:          core.NewDate(2025, 6, 10),
		FromAccountID: "cash",
		ToAccountID:   "debit",
		Amount:        core.Money{Cents: 20000},
	})
	require.NoError(t, err)

	out, in := legs[0], legs[1]
	assert.Equal(t, core.KindExpense, out.Kind)
	assert.Equal(t, "cash", out.AccountID)
	assert.Equal(t, "Transferencia a Débito", out.Note)
	assert.Equal(t, core.KindIncome, in.Kind)
	assert.Equal(t, "debit", in.AccountID)
	assert.Equal(t, "Transferencia desde Efectivo", in.Note)
	assert.True(t, out.IsTransfer())
	assert.True(t, in.IsTransfer())

	// Both legs excluded from aggregates, balances still move.
	all, _ := store.ListTransactions(ctx)
	totals := analytics.Summarize(all)
	assert.Zero(t, totals.Income.Cents)
	assert.Zero(t, totals.Expense.Cents)

	balances := analytics.Balances(all, core.SeedAccounts())
	byID := make(map[string]int64)
	for _, b := range balances {
		byID[b.AccountID] = b.Balance.Cents
	}
	assert.Equal(t, int64(-20000), byID["cash"])
	assert.Equal(t, int64(20000), byID["debit"])

	assert.Len(t, events.events, 2, "one create event per leg")
}

func TestTransferValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewTransactionService(store, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Transfer(ctx, TransferParams{
		Date: core.NewDate(2025, 6, 10), FromAccountID: "cash", ToAccountID: "debit",
		Amount: core.Money{Cents: 0},
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.Transfer(ctx, TransferParams{
		Date: core.NewDate(2025, 6, 10), FromAccountID: "cash", ToAccountID: "cash",
		Amount: core.Money{Cents: 100},
	})
	assert.ErrorIs(t, err, core.ErrSameAccount)

	// Two dangling ids both resolve to the first account.
	_, err = svc.Transfer(ctx, TransferParams{
		Date: core.NewDate(2025, 6, 10), FromAccountID: "ghost-a", ToAccountID: "ghost-b",
		Amount: core.Money{Cents: 100},
	})
	assert.ErrorIs(t, err, core.ErrSameAccount)

	all, _ := store.ListTransactions(ctx)
	assert.Empty(t, all, "failed transfers leave no partial legs")
}

func TestDepositToGoal(t *testing.T) {
	store := storage.NewMemoryStore()
	events := &fakePublisher{}
	svc := NewTransactionService(store, events, testLogger())
	ctx := context.Background()

	goal := core.SavingsGoal{ID: "g1", Name: "Vacaciones", Target: core.Money{Cents: 500000}}
	require.NoError(t, store.InsertGoal(ctx, goal))

	updated, companion, err := svc.DepositToGoal(ctx, DepositParams{
		Date:      core.NewDate(2025, 6, 10),
		GoalID:    "g1",
		AccountID: "debit",
		Amount:    core.Money{Cents: 30000},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(30000), updated.Balance.Cents)
	assert.Equal(t, core.KindExpense, companion.Kind)
	assert.Equal(t, core.CategoryAhorro, companion.Category)
	assert.Equal(t, "Ahorro: Vacaciones", companion.Note)
	assert.Equal(t, "debit", companion.AccountID)

	// Goal balance and companion row moved together.
	all, _ := store.ListTransactions(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, int64(30000), analytics.TotalSaved(all).Cents)

	require.Len(t, events.events, 1)
	assert.Equal(t, companion.ID, events.events[0].TransactionID)
}

func TestDepositToGoalErrors(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewTransactionService(store, nil, testLogger())
	ctx := context.Background()

	_, _, err := svc.DepositToGoal(ctx, DepositParams{
		Date: core.NewDate(2025, 6, 10), GoalID: "missing", Amount: core.Money{Cents: 100},
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, _, err = svc.DepositToGoal(ctx, DepositParams{
		Date: core.NewDate(2025, 6, 10), GoalID: "missing", Amount: core.Money{Cents: 0},
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestPublisherFailureDoesNotFailCreate(t *testing.T) {
	store := storage.NewMemoryStore()
	events := &fakePublisher{err: assert.AnError}
	svc := NewTransactionService(store, events, testLogger())

	tx, err := svc.Create(context.Background(), CreateParams{
		Date: core.NewDate(2025, 6, 10), Kind: core.KindExpense,
		Category: core.CategoryOtros, Amount: core.Money{Cents: 100},
	})
	require.NoError(t, err, "the database is the source of truth; events are best-effort")

	stored, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, stored.ID)
}
