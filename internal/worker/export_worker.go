// Package worker exports committed transactions to an external sheet.
// AMQP events drive the hot path; a periodic scan of sync_status picks
// up anything a lost message left behind.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/sheets"
	"tally/internal/storage"
)

type ExportWorker struct {
	storage   *storage.SQLiteRepository
	sheet     sheets.TransactionAppender
	batchSize int
	audit     *applog.StructuredLogger
}

func NewExportWorker(store *storage.SQLiteRepository, sheet sheets.TransactionAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   store,
		sheet:     sheet,
		batchSize: batchSize,
		audit:     applog.Default(applog.ComponentWorker),
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"component", "worker",
		"entity", msg.Entity,
		"id", msg.ID,
		"op", msg.Op,
		"version", msg.Version)

	if msg.Entity != amqp.EntityTransaction {
		slog.WarnContext(ctx, "Unknown entity in ledger event, skipping",
			"component", "worker", "entity", msg.Entity, "id", msg.ID)
		return nil
	}

	// The sheet is append-only; deletions have nothing to remove and
	// the row stays as an audit trail.
	if msg.Op == amqp.OpDeleted {
		slog.InfoContext(ctx, "Skipping export for deleted transaction",
			"component", "worker", "id", msg.ID)
		return nil
	}

	tx, err := w.storage.Queries().GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and consume.
		slog.WarnContext(ctx, "Transaction vanished before export, skipping",
			"component", "worker", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", msg.ID, err)
	}

	return w.exportTransaction(ctx, tx)
}

// ProcessPending exports transactions still marked pending. This is a
// backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	return w.processBatch(ctx, w.batchSize, false)
}

// StartupSyncCheck drains a larger pending backlog at worker startup,
// recovering from missed messages or worker downtime.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processBatch(ctx, w.batchSize*5, true)
}

func (w *ExportWorker) processBatch(ctx context.Context, limit int, logSummary bool) error {
	pending, err := w.storage.Queries().GetPendingSyncTransactions(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		if logSummary {
			slog.InfoContext(ctx, "No pending transactions found on startup", "component", "worker")
		}
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions",
		"component", "worker", "count", len(pending))

	exported := 0
	failed := 0
	for _, p := range pending {
		tx, err := w.storage.Queries().GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction",
				"component", "worker", "id", p.ID, "error", err)
			if markErr := w.storage.Queries().MarkTransactionSyncError(ctx, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"component", "worker", "id", p.ID, "error", markErr)
			}
			failed++
			continue
		}

		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"component", "worker", "id", p.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	if logSummary {
		slog.InfoContext(ctx, "Startup sync completed",
			"component", "worker",
			"total", len(pending),
			"exported", exported,
			"errors", failed)
	}
	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, tx core.Transaction) error {
	row := w.buildRow(ctx, tx)

	ref, err := w.sheet.Append(ctx, row)
	if err != nil {
		if markErr := w.storage.Queries().MarkTransactionSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"component", "worker", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.Queries().MarkTransactionSynced(ctx, tx.ID); err != nil {
		// The append went through; a pending re-export is the worst case.
		slog.ErrorContext(ctx, "Failed to mark transaction synced",
			"component", "worker", "id", tx.ID, "error", err)
	}

	w.audit.LogTransactionExported(ctx, tx.ID, ref)
	return nil
}

// buildRow resolves wallet and category names best-effort; a lookup
// failure leaves the column blank rather than blocking the export.
func (w *ExportWorker) buildRow(ctx context.Context, tx core.Transaction) sheets.Row {
	row := sheets.Row{
		Date:        tx.TransactionDate,
		Type:        string(tx.Type),
		Description: tx.Description,
		AmountCents: tx.AmountCents,
		Notes:       tx.Notes,
	}

	if wallet, err := w.storage.Queries().GetWallet(ctx, tx.WalletID); err == nil {
		row.Wallet = wallet.Name
	} else {
		slog.WarnContext(ctx, "Could not resolve wallet name for export",
			"component", "worker", "id", tx.ID, "wallet_id", tx.WalletID, "error", err)
	}

	if tx.CategoryID != nil {
		if cat, err := w.storage.Queries().GetCategory(ctx, *tx.CategoryID); err == nil {
			row.Category = cat.Name
		} else {
			slog.WarnContext(ctx, "Could not resolve category name for export",
				"component", "worker", "id", tx.ID, "category_id", *tx.CategoryID, "error", err)
		}
	}
	return row
}
