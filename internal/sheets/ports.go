package sheets

import (
	"context"

	"gastopro/internal/core"
)

// BackupAppender is the outbound port for the append-only spreadsheet
// backup. Implementations return an opaque row reference for logging.
type BackupAppender interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
