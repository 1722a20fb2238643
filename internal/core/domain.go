package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Category labels. Aggregation treats the set as closed even though
// storage accepts free-form strings.
const (
	CategoryAlimentos       = "alimentos"
	CategoryServicios       = "servicios"
	CategoryTransporte      = "transporte"
	CategoryVivienda        = "vivienda"
	CategorySalud           = "salud"
	CategoryEntretenimiento = "entretenimiento"
	CategoryOtros           = "otros"
	CategoryIngresos        = "ingresos"
	CategoryAhorro          = "ahorro"
	CategoryTransfer        = "transfer"
)

type (
	Kind string

	Date struct {
		time.Time
	}

	// Transaction is a single recorded money movement. Immutable once
	// created: it can be deleted but never edited in place.
	Transaction struct {
		ID        string   `json:"id"`
		Date      Date     `json:"date"`
		Kind      Kind     `json:"type"`
		Category  string   `json:"category"`
		Note      string   `json:"note"`
		Amount    Money    `json:"amount"`
		Tags      []string `json:"tags,omitempty"`
		AccountID string   `json:"accountId"`
	}

	// Account carries no balance of its own; balances are always folded
	// from the transaction log.
	Account struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// RecurringTemplate is a transaction shape without a date. It
	// materializes into a concrete day-1 transaction each month.
	RecurringTemplate struct {
		ID        string `json:"id"`
		Kind      Kind   `json:"type"`
		Category  string `json:"category"`
		Amount    Money  `json:"amount"`
		Note      string `json:"note"`
		AccountID string `json:"accountId"`
	}

	// SavingsGoal keeps a stored balance that advances in lockstep with
	// a companion ahorro transaction on every deposit.
	SavingsGoal struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Target  Money  `json:"target"`
		Balance Money  `json:"balance"`
		Emoji   string `json:"emoji"`
	}

	// KPIPrefs is persisted dashboard state with no computational role.
	KPIPrefs struct {
		Order   []string        `json:"order"`
		Visible map[string]bool `json:"visible"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid kind")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyName     = errors.New("empty name")
	ErrSameAccount   = errors.New("source and destination accounts are the same")
	ErrAccountInUse  = errors.New("account has transactions")
	ErrNotFound      = errors.New("not found")
)

// Categories returns the full label set in display order.
func Categories() []string {
	return []string{
		CategoryAlimentos, CategoryServicios, CategoryTransporte,
		CategoryVivienda, CategorySalud, CategoryEntretenimiento,
		CategoryOtros, CategoryIngresos, CategoryAhorro, CategoryTransfer,
	}
}

// SpendCategories returns the categories a budget can be set on.
// Income, savings and transfer legs are never budgeted.
func SpendCategories() []string {
	return []string{
		CategoryAlimentos, CategoryServicios, CategoryTransporte,
		CategoryVivienda, CategorySalud, CategoryEntretenimiento,
		CategoryOtros,
	}
}

// SeedAccounts returns the three accounts installed on first run.
func SeedAccounts() []Account {
	return []Account{
		{ID: "cash", Name: "Efectivo"},
		{ID: "debit", Name: "Débito"},
		{ID: "credit", Name: "Crédito"},
	}
}

// DefaultCategoryIcons returns the seed icon map shown next to
// category labels.
func DefaultCategoryIcons() map[string]string {
	return map[string]string{
		CategoryAlimentos:       "🍔",
		CategoryServicios:       "💡",
		CategoryTransporte:      "🚗",
		CategoryVivienda:        "🏠",
		CategorySalud:           "🩺",
		CategoryEntretenimiento: "🎮",
		CategoryOtros:           "🧩",
		CategoryIngresos:        "💼",
		CategoryAhorro:          "🐷",
		CategoryTransfer:        "🔁",
	}
}

// DefaultKPIPrefs returns the headline-metric ordering and visibility
// used until the user customizes the dashboard.
func DefaultKPIPrefs() KPIPrefs {
	return KPIPrefs{
		Order: []string{"ingresos", "gastos", "saldo", "proyeccion"},
		Visible: map[string]bool{
			"ingresos":   true,
			"gastos":     true,
			"saldo":      true,
			"proyeccion": true,
		},
	}
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// NewDate creates a civil date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a wall-clock instant to its civil date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return t.Amount.Validate()
}

// IsTransfer reports whether the transaction is one leg of an
// account-to-account transfer. Transfer legs move money between
// accounts and are excluded from every income/expense aggregate.
func (t Transaction) IsTransfer() bool {
	return t.Category == CategoryTransfer
}

// HasTag reports whether the transaction carries the given tag.
func (t Transaction) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

func (tpl RecurringTemplate) Validate() error {
	if err := tpl.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(tpl.Category) == "" {
		return ErrEmptyCategory
	}
	return tpl.Amount.Validate()
}

// Matches reports whether tx has exactly this template's shape.
// All shape fields must match; date, id and tags are ignored.
func (tpl RecurringTemplate) Matches(tx Transaction) bool {
	return tx.Kind == tpl.Kind &&
		tx.Category == tpl.Category &&
		tx.Amount == tpl.Amount &&
		tx.Note == tpl.Note &&
		tx.AccountID == tpl.AccountID
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Balance.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ResolveAccount maps an account id to an existing account, defaulting
// dangling references to the first configured account. Historical
// transactions may reference accounts deleted since; they must still
// land somewhere in the ledger.
func ResolveAccount(accounts []Account, id string) string {
	for _, a := range accounts {
		if a.ID == id {
			return id
		}
	}
	if len(accounts) > 0 {
		return accounts[0].ID
	}
	return id
}
