// Package worker consumes transaction events and mirrors created
// transactions into the spreadsheet backup.
package worker

import (
	"context"
	"errors"
	"fmt"

	"gastopro/internal/amqp"
	"gastopro/internal/core"
	"gastopro/internal/log"
	"gastopro/internal/services"
	"gastopro/internal/sheets"
)

// SyncWorker resolves event messages against the store and appends
// rows to the backup sheet. The sheet is append-only: delete events
// are acknowledged but leave the sheet untouched.
type SyncWorker struct {
	store  services.Store
	backup sheets.BackupAppender
	logger *log.Logger
}

func NewSyncWorker(store services.Store, backup sheets.BackupAppender, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		store:  store,
		backup: backup,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one transaction event from the stream.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	switch msg.Op {
	case amqp.OpCreate:
		return w.handleCreate(ctx, msg.TransactionID)
	case amqp.OpDelete:
		w.logger.InfoContext(ctx, "Delete event skipped, backup sheet is append-only",
			log.FieldTransactionID, msg.TransactionID)
		return nil
	default:
		w.logger.WarnContext(ctx, "Unknown event op, dropping message",
			log.FieldTransactionID, msg.TransactionID, "op", msg.Op)
		return nil
	}
}

func (w *SyncWorker) handleCreate(ctx context.Context, id string) error {
	t, err := w.store.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and consume. Nothing to mirror.
		w.logger.WarnContext(ctx, "Transaction vanished before backup, skipping",
			log.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}

	ref, err := w.backup.AppendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("append transaction %s to backup: %w", id, err)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored to backup sheet",
		log.FieldTransactionID, id,
		log.FieldSheetsRef, ref)
	return nil
}
