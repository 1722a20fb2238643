// Package export moves the whole dataset in and out: a pretty-printed
// JSON bundle for backup/restore and a flat CSV for spreadsheets.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gastopro/internal/core"
	"gastopro/internal/log"
	"gastopro/internal/services"
)

// ErrInvalidBundle means the import payload was not a JSON object.
// Nothing is applied in that case.
var ErrInvalidBundle = errors.New("invalid import bundle")

// Preference keys carried inside the bundle.
const (
	prefCatIcons = "catIcons"
	prefKPIPrefs = "kpiPrefs"
)

// csvHeader is the fixed column order of the CSV export.
var csvHeader = []string{"id", "type", "category", "amount", "date", "note", "tags", "accountId"}

// Bundle is the JSON export shape: the full dataset in one object.
type Bundle struct {
	Transactions []core.Transaction       `json:"transactions"`
	Budgets      map[string]core.Money    `json:"budgets"`
	Templates    []core.RecurringTemplate `json:"templates"`
	Accounts     []core.Account           `json:"accounts"`
	Goals        []core.SavingsGoal       `json:"goals"`
	CatIcons     map[string]string        `json:"catIcons,omitempty"`
	KPIPrefs     *core.KPIPrefs           `json:"kpiPrefs,omitempty"`
}

type Service struct {
	store  services.Store
	logger *log.Logger
}

func NewService(store services.Store, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.WithComponent(log.ComponentExport),
	}
}

// ExportJSON serializes the full dataset as an indented JSON bundle.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	bundle, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return out, nil
}

// ExportCSV serializes the transaction log with a fixed header. Tags
// are space-joined into one field; all escaping is RFC 4180.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		record := []string{
			t.ID,
			string(t.Kind),
			t.Category,
			t.Amount.DecimalString(),
			t.Date.String(),
			t.Note,
			strings.Join(t.Tags, " "),
			t.AccountID,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportJSON restores state from a bundle. Each top-level field is
// applied independently when present and well-typed: a malformed
// budgets field skips budgets but still restores transactions. Arrays
// replace the current data wholesale. A payload that is not a JSON
// object applies nothing.
func (s *Service) ImportJSON(ctx context.Context, data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return ErrInvalidBundle
	}

	if raw, ok := fields["transactions"]; ok {
		var txs []core.Transaction
		if err := json.Unmarshal(raw, &txs); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed transactions field", log.FieldError, err)
		} else if err := s.store.ReplaceTransactions(ctx, txs); err != nil {
			return fmt.Errorf("replace transactions: %w", err)
		}
	}

	if raw, ok := fields["accounts"]; ok {
		var accounts []core.Account
		if err := json.Unmarshal(raw, &accounts); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed accounts field", log.FieldError, err)
		} else if err := s.store.ReplaceAccounts(ctx, accounts); err != nil {
			return fmt.Errorf("replace accounts: %w", err)
		}
	}

	if raw, ok := fields["budgets"]; ok {
		var budgets map[string]core.Money
		if err := json.Unmarshal(raw, &budgets); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed budgets field", log.FieldError, err)
		} else if err := s.store.ReplaceBudgets(ctx, budgets); err != nil {
			return fmt.Errorf("replace budgets: %w", err)
		}
	}

	if raw, ok := fields["templates"]; ok {
		var templates []core.RecurringTemplate
		if err := json.Unmarshal(raw, &templates); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed templates field", log.FieldError, err)
		} else if err := s.store.ReplaceTemplates(ctx, templates); err != nil {
			return fmt.Errorf("replace templates: %w", err)
		}
	}

	if raw, ok := fields["goals"]; ok {
		var goals []core.SavingsGoal
		if err := json.Unmarshal(raw, &goals); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed goals field", log.FieldError, err)
		} else if err := s.store.ReplaceGoals(ctx, goals); err != nil {
			return fmt.Errorf("replace goals: %w", err)
		}
	}

	for _, key := range []string{prefCatIcons, prefKPIPrefs} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if !json.Valid(raw) {
			s.logger.WarnContext(ctx, "Skipping malformed preference field", "key", key)
			continue
		}
		if err := s.store.SetPreference(ctx, key, raw); err != nil {
			return fmt.Errorf("set preference %s: %w", key, err)
		}
	}

	s.logger.InfoContext(ctx, "Import applied", log.FieldOperation, log.OpImport)
	return nil
}

func (s *Service) collect(ctx context.Context) (Bundle, error) {
	var bundle Bundle
	var err error

	if bundle.Transactions, err = s.store.ListTransactions(ctx); err != nil {
		return bundle, fmt.Errorf("list transactions: %w", err)
	}
	if bundle.Budgets, err = s.store.GetBudgets(ctx); err != nil {
		return bundle, fmt.Errorf("get budgets: %w", err)
	}
	if bundle.Templates, err = s.store.ListTemplates(ctx); err != nil {
		return bundle, fmt.Errorf("list templates: %w", err)
	}
	if bundle.Accounts, err = s.store.ListAccounts(ctx); err != nil {
		return bundle, fmt.Errorf("list accounts: %w", err)
	}
	if bundle.Goals, err = s.store.ListGoals(ctx); err != nil {
		return bundle, fmt.Errorf("list goals: %w", err)
	}
	if bundle.Transactions == nil {
		bundle.Transactions = []core.Transaction{}
	}

	if raw, ok, err := s.store.GetPreference(ctx, prefCatIcons); err != nil {
		return bundle, fmt.Errorf("get icon preferences: %w", err)
	} else if ok {
		var icons map[string]string
		if json.Unmarshal(raw, &icons) == nil {
			bundle.CatIcons = icons
		}
	}
	if raw, ok, err := s.store.GetPreference(ctx, prefKPIPrefs); err != nil {
		return bundle, fmt.Errorf("get kpi preferences: %w", err)
	} else if ok {
		var prefs core.KPIPrefs
		if json.Unmarshal(raw, &prefs) == nil {
			bundle.KPIPrefs = &prefs
		}
	}

	return bundle, nil
}
