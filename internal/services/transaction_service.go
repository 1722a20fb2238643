package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gastopro/internal/amqp"
	"gastopro/internal/analytics"
	"gastopro/internal/core"
	"gastopro/internal/log"
)

// TransactionService owns the write path for the transaction log:
// plain movements, transfer pairs and goal deposits. Storage first,
// then a best-effort event on the stream.
type TransactionService struct {
	store  Store
	events EventPublisher
	logger *log.Logger
}

func NewTransactionService(store Store, events EventPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
		logger: logger.WithComponent(log.ComponentTransactions),
	}
}

// CreateParams is the inbound shape for a new transaction.
type CreateParams struct {
	Date      core.Date
	Kind      core.Kind
	Category  string
	Note      string
	Amount    core.Money
	Tags      []string
	AccountID string
}

// TransferParams moves money between two accounts.
type TransferParams struct {
	Date          core.Date
	FromAccountID string
	ToAccountID   string
	Amount        core.Money
	Note          string
}

// DepositParams funds a savings goal from an account.
type DepositParams struct {
	Date      core.Date
	GoalID    string
	AccountID string
	Amount    core.Money
}

// ListFilter narrows the transaction list. Zero Year/Month means no
// month filter; Query matches note, category, tags and account id
// case-insensitively.
type ListFilter struct {
	Year  int
	Month int
	Kind  core.Kind
	Query string
}

// Create validates, resolves the account and persists one transaction.
func (s *TransactionService) Create(ctx context.Context, p CreateParams) (core.Transaction, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("list accounts: %w", err)
	}

	t := core.Transaction{
		ID:        uuid.NewString(),
		Date:      p.Date,
		Kind:      p.Kind,
		Category:  strings.TrimSpace(p.Category),
		Note:      strings.TrimSpace(p.Note),
		Amount:    p.Amount,
		Tags:      p.Tags,
		AccountID: core.ResolveAccount(accounts, p.AccountID),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.InsertTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldTransactionID, t.ID,
		log.FieldKind, string(t.Kind),
		log.FieldCategory, t.Category,
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldAccountID, t.AccountID)

	s.publishEvent(ctx, t.ID, amqp.OpCreate)
	return t, nil
}

// Delete hard-deletes a transaction. The log keeps no tombstones;
// every aggregate recomputes without the row on the next read.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)
	s.publishEvent(ctx, id, amqp.OpDelete)
	return nil
}

// List returns transactions matching the filter, newest first.
func (s *TransactionService) List(ctx context.Context, f ListFilter) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if f.Year != 0 && f.Month != 0 {
		txs = analytics.FilterMonth(txs, f.Year, f.Month)
	}
	if f.Kind != "" {
		filtered := txs[:0:0]
		for _, t := range txs {
			if t.Kind == f.Kind {
				filtered = append(filtered, t)
			}
		}
		txs = filtered
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		filtered := txs[:0:0]
		for _, t := range txs {
			if matchesQuery(t, q) {
				filtered = append(filtered, t)
			}
		}
		txs = filtered
	}
	return txs, nil
}

func matchesQuery(t core.Transaction, q string) bool {
	if strings.Contains(strings.ToLower(t.Note), q) ||
		strings.Contains(strings.ToLower(t.Category), q) ||
		strings.Contains(strings.ToLower(t.AccountID), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Transfer records both legs of an account-to-account movement
// atomically. Both legs carry the transfer category and tag, which
// keeps them out of every income/expense aggregate while the per-
// account balances shift.
func (s *TransactionService) Transfer(ctx context.Context, p TransferParams) ([2]core.Transaction, error) {
	var legs [2]core.Transaction

	if p.Amount.Cents <= 0 {
		return legs, core.ErrInvalidAmount
	}
	if p.FromAccountID == p.ToAccountID {
		return legs, core.ErrSameAccount
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return legs, fmt.Errorf("list accounts: %w", err)
	}
	from := core.ResolveAccount(accounts, p.FromAccountID)
	to := core.ResolveAccount(accounts, p.ToAccountID)
	if from == to {
		return legs, core.ErrSameAccount
	}

	outNote := strings.TrimSpace(p.Note)
	inNote := outNote
	if outNote == "" {
		outNote = "Transferencia a " + accountName(accounts, to)
		inNote = "Transferencia desde " + accountName(accounts, from)
	}

	legs[0] = core.Transaction{
		ID:        uuid.NewString(),
		Date:      p.Date,
		Kind:      core.KindExpense,
		Category:  core.CategoryTransfer,
		Note:      outNote,
		Amount:    p.Amount,
		Tags:      []string{core.CategoryTransfer},
		AccountID: from,
	}
	legs[1] = core.Transaction{
		ID:        uuid.NewString(),
		Date:      p.Date,
		Kind:      core.KindIncome,
		Category:  core.CategoryTransfer,
		Note:      inNote,
		Amount:    p.Amount,
		Tags:      []string{core.CategoryTransfer},
		AccountID: to,
	}
	for _, leg := range legs {
		if err := leg.Validate(); err != nil {
			return legs, err
		}
	}

	if err := s.store.InsertTransactionPair(ctx, legs[0], legs[1]); err != nil {
		return legs, fmt.Errorf("save transfer legs: %w", err)
	}

	s.logger.InfoContext(ctx, "Transfer recorded",
		log.FieldOperation, log.OpTransfer,
		log.FieldAmountCents, p.Amount.Cents,
		"from_account", from,
		"to_account", to)

	s.publishEvent(ctx, legs[0].ID, amqp.OpCreate)
	s.publishEvent(ctx, legs[1].ID, amqp.OpCreate)
	return legs, nil
}

// DepositToGoal advances a goal and records the companion ahorro
// expense in one storage transaction. The companion row is what the
// savings analytics (streaks, weekly challenge, total saved) see.
func (s *TransactionService) DepositToGoal(ctx context.Context, p DepositParams) (core.SavingsGoal, core.Transaction, error) {
	if p.Amount.Cents <= 0 {
		return core.SavingsGoal{}, core.Transaction{}, core.ErrInvalidAmount
	}

	goal, err := s.store.GetGoal(ctx, p.GoalID)
	if err != nil {
		return core.SavingsGoal{}, core.Transaction{}, err
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return core.SavingsGoal{}, core.Transaction{}, fmt.Errorf("list accounts: %w", err)
	}

	companion := core.Transaction{
		ID:        uuid.NewString(),
		Date:      p.Date,
		Kind:      core.KindExpense,
		Category:  core.CategoryAhorro,
		Note:      "Ahorro: " + goal.Name,
		Amount:    p.Amount,
		Tags:      []string{core.CategoryAhorro},
		AccountID: core.ResolveAccount(accounts, p.AccountID),
	}
	if err := companion.Validate(); err != nil {
		return core.SavingsGoal{}, core.Transaction{}, err
	}

	updated, err := s.store.DepositToGoal(ctx, p.GoalID, p.Amount, companion)
	if err != nil {
		return core.SavingsGoal{}, core.Transaction{}, fmt.Errorf("deposit to goal: %w", err)
	}

	s.logger.InfoContext(ctx, "Goal deposit recorded",
		log.FieldOperation, log.OpDeposit,
		log.FieldGoalID, p.GoalID,
		log.FieldAmountCents, p.Amount.Cents)

	s.publishEvent(ctx, companion.ID, amqp.OpCreate)
	return updated, companion, nil
}

// publishEvent is nil-safe and never fails the caller: the database is
// the source of truth and the stream is a best-effort feed.
func (s *TransactionService) publishEvent(ctx context.Context, id, op string) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping event",
			log.FieldTransactionID, id, "op", op)
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, id, op); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, id, "op", op, log.FieldError, err)
	}
}

func accountName(accounts []core.Account, id string) string {
	for _, a := range accounts {
		if a.ID == id {
			return a.Name
		}
	}
	return id
}
