package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gastopro/internal/core"
	"gastopro/internal/log"
)

// RecurringService turns templates into concrete day-1 transactions.
// It runs at startup, on a ticker, and for whatever month the
// dashboard is asked about, so a month is materialized before it is
// first summarized.
type RecurringService struct {
	store  Store
	logger *log.Logger
}

func NewRecurringService(store Store, logger *log.Logger) *RecurringService {
	return &RecurringService{
		store:  store,
		logger: logger.WithComponent(log.ComponentRecurring),
	}
}

// MaterializeMonth inserts one transaction per template on day 1 of
// the month, skipping templates that already have an exact-shape
// transaction on that date. Exact-field matching makes the operation
// idempotent: running it twice never duplicates, and a manually
// deleted materialization is re-created on the next run.
func (s *RecurringService) MaterializeMonth(ctx context.Context, year, month int) (int, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	if len(templates) == 0 {
		return 0, nil
	}

	first := core.NewDate(year, month, 1)
	created := 0
	for _, tpl := range templates {
		exists, err := s.store.HasMaterialized(ctx, first, tpl)
		if err != nil {
			return created, fmt.Errorf("check template %s: %w", tpl.ID, err)
		}
		if exists {
			continue
		}

		t := core.Transaction{
			ID:        uuid.NewString(),
			Date:      first,
			Kind:      tpl.Kind,
			Category:  tpl.Category,
			Note:      tpl.Note,
			Amount:    tpl.Amount,
			AccountID: tpl.AccountID,
		}
		if err := s.store.InsertTransaction(ctx, t); err != nil {
			return created, fmt.Errorf("materialize template %s: %w", tpl.ID, err)
		}
		created++

		s.logger.InfoContext(ctx, "Recurring template materialized",
			log.FieldOperation, log.OpMaterialize,
			log.FieldTemplateID, tpl.ID,
			log.FieldTransactionID, t.ID,
			log.FieldYear, year,
			log.FieldMonth, month)
	}

	return created, nil
}
