// Package storage is the system of record. The SQLite repository owns
// all persistence; every multi-row mutation (transfer legs, goal
// deposits, wholesale import) runs inside a single SQL transaction so
// partial writes can never be observed.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"gastopro/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const transactionColumns = "id, date, kind, category, note, amount_cents, tags, account_id"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// runMigrations applies any pending schema migrations from the
// embedded SQL files. It opens its own connection so the migrate
// driver never shares state with the main pool.
func runMigrations(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("migrate: open database: %w", err)
	}
	defer db.Close()

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("migrate: sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate: embedded source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: apply: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- transactions ---

// ListTransactions returns the full log, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY date DESC, created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.Date.String(), string(t.Kind), t.Category, t.Note,
		t.Amount.Cents, joinTags(t.Tags), t.AccountID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertTransactionPair writes two legs atomically. Used for
// account-to-account transfers where observing only one leg would
// break the ledger.
func (r *SQLiteRepository) InsertTransactionPair(ctx context.Context, a, b core.Transaction) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range []core.Transaction{a, b} {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				t.ID, t.Date.String(), string(t.Kind), t.Category, t.Note,
				t.Amount.Cents, joinTags(t.Tags), t.AccountID)
			if err != nil {
				return fmt.Errorf("insert transaction leg: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// HasMaterialized reports whether a transaction with exactly the
// template's shape exists on the given date. Drives materializer
// idempotence.
func (r *SQLiteRepository) HasMaterialized(ctx context.Context, date core.Date, tpl core.RecurringTemplate) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM transactions
		 WHERE date = ? AND kind = ? AND category = ? AND amount_cents = ? AND note = ? AND account_id = ?
		 LIMIT 1`,
		date.String(), string(tpl.Kind), tpl.Category, tpl.Amount.Cents, tpl.Note, tpl.AccountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check materialized transaction: %w", err)
	}
	return true, nil
}

// --- accounts ---

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM accounts ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO accounts (id, name) VALUES (?, ?)", a.ID, a.Name)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RenameAccount(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE accounts SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("rename account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteAccount refuses to remove an account still referenced by any
// transaction; the reference check and the delete share a transaction
// so a concurrent insert cannot slip between them.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var refs int64
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM transactions WHERE account_id = ?", id).Scan(&refs)
		if err != nil {
			return fmt.Errorf("count account references: %w", err)
		}
		if refs > 0 {
			return core.ErrAccountInUse
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrNotFound
		}
		return nil
	})
}

// --- budgets ---

func (r *SQLiteRepository) GetBudgets(ctx context.Context) (map[string]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT category, limit_cents FROM budgets")
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.Money)
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out[category] = core.Money{Cents: cents}
	}
	return out, rows.Err()
}

// SetBudget upserts a category ceiling. Zero means untracked.
func (r *SQLiteRepository) SetBudget(ctx context.Context, category string, limit core.Money) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category, limit_cents) VALUES (?, ?)
		 ON CONFLICT (category) DO UPDATE SET limit_cents = excluded.limit_cents`,
		category, limit.Cents)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// --- recurring templates ---

func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, kind, category, amount_cents, note, account_id FROM recurring_templates ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		var tpl core.RecurringTemplate
		var kind string
		if err := rows.Scan(&tpl.ID, &kind, &tpl.Category, &tpl.Amount.Cents, &tpl.Note, &tpl.AccountID); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpl.Kind = core.Kind(kind)
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertTemplate(ctx context.Context, tpl core.RecurringTemplate) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO recurring_templates (id, kind, category, amount_cents, note, account_id) VALUES (?, ?, ?, ?, ?, ?)",
		tpl.ID, string(tpl.Kind), tpl.Category, tpl.Amount.Cents, tpl.Note, tpl.AccountID)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recurring_templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- savings goals ---

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, target_cents, balance_cents, emoji FROM savings_goals ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var g core.SavingsGoal
		if err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Balance.Cents, &g.Emoji); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, target_cents, balance_cents, emoji FROM savings_goals WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Balance.Cents, &g.Emoji)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, g core.SavingsGoal) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO savings_goals (id, name, target_cents, balance_cents, emoji) VALUES (?, ?, ?, ?, ?)",
		g.ID, g.Name, g.Target.Cents, g.Balance.Cents, g.Emoji)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM savings_goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DepositToGoal advances the goal balance and records the companion
// ahorro transaction in one SQL transaction: either both writes land
// or neither does.
func (r *SQLiteRepository) DepositToGoal(ctx context.Context, goalID string, amount core.Money, companion core.Transaction) (core.SavingsGoal, error) {
	var updated core.SavingsGoal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE savings_goals SET balance_cents = balance_cents + ? WHERE id = ?",
			amount.Cents, goalID)
		if err != nil {
			return fmt.Errorf("advance goal balance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.ErrNotFound
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			companion.ID, companion.Date.String(), string(companion.Kind), companion.Category,
			companion.Note, companion.Amount.Cents, joinTags(companion.Tags), companion.AccountID)
		if err != nil {
			return fmt.Errorf("insert companion transaction: %w", err)
		}

		return tx.QueryRowContext(ctx,
			"SELECT id, name, target_cents, balance_cents, emoji FROM savings_goals WHERE id = ?", goalID).
			Scan(&updated.ID, &updated.Name, &updated.Target.Cents, &updated.Balance.Cents, &updated.Emoji)
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return updated, nil
}

// --- preferences ---

// GetPreference returns the raw JSON value for key, with a found flag.
func (r *SQLiteRepository) GetPreference(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get preference: %w", err)
	}
	return []byte(value), true, nil
}

func (r *SQLiteRepository) SetPreference(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

// --- wholesale replacement (import) ---

func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, txs []core.Transaction) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		for _, t := range txs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				t.ID, t.Date.String(), string(t.Kind), t.Category, t.Note,
				t.Amount.Cents, joinTags(t.Tags), t.AccountID)
			if err != nil {
				return fmt.Errorf("insert imported transaction: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ReplaceAccounts(ctx context.Context, accounts []core.Account) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM accounts"); err != nil {
			return fmt.Errorf("clear accounts: %w", err)
		}
		for _, a := range accounts {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO accounts (id, name) VALUES (?, ?)", a.ID, a.Name); err != nil {
				return fmt.Errorf("insert imported account: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ReplaceBudgets(ctx context.Context, budgets map[string]core.Money) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM budgets"); err != nil {
			return fmt.Errorf("clear budgets: %w", err)
		}
		for category, limit := range budgets {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO budgets (category, limit_cents) VALUES (?, ?)", category, limit.Cents); err != nil {
				return fmt.Errorf("insert imported budget: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ReplaceTemplates(ctx context.Context, templates []core.RecurringTemplate) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM recurring_templates"); err != nil {
			return fmt.Errorf("clear templates: %w", err)
		}
		for _, tpl := range templates {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO recurring_templates (id, kind, category, amount_cents, note, account_id) VALUES (?, ?, ?, ?, ?, ?)",
				tpl.ID, string(tpl.Kind), tpl.Category, tpl.Amount.Cents, tpl.Note, tpl.AccountID)
			if err != nil {
				return fmt.Errorf("insert imported template: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) ReplaceGoals(ctx context.Context, goals []core.SavingsGoal) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM savings_goals"); err != nil {
			return fmt.Errorf("clear goals: %w", err)
		}
		for _, g := range goals {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO savings_goals (id, name, target_cents, balance_cents, emoji) VALUES (?, ?, ?, ?, ?)",
				g.ID, g.Name, g.Target.Cents, g.Balance.Cents, g.Emoji)
			if err != nil {
				return fmt.Errorf("insert imported goal: %w", err)
			}
		}
		return nil
	})
}

// --- helpers ---

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var date, kind, tags string
	if err := row.Scan(&t.ID, &date, &kind, &t.Category, &t.Note, &t.Amount.Cents, &tags, &t.AccountID); err != nil {
		return core.Transaction{}, err
	}
	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	t.Date = parsed
	t.Kind = core.Kind(kind)
	t.Tags = splitTags(tags)
	return t, nil
}

// Tags persist as a space-joined list; tags themselves never contain
// whitespace.
func joinTags(tags []string) string {
	return strings.Join(tags, " ")
}

func splitTags(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
