package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/sheets"
	"tally/internal/sheets/memory"
	"tally/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTransaction(t *testing.T, repo *storage.SQLiteRepository) core.Transaction {
	t.Helper()
	ctx := context.Background()
	w, err := repo.Queries().CreateWallet(ctx, core.Wallet{
		Name: "Checking", Type: core.WalletBank, Currency: "USD", IsActive: true,
	})
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	cat, err := repo.Queries().CreateCategory(ctx, core.Category{Name: "Food", Type: core.CategoryExpense})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	tx, err := repo.Queries().CreateTransaction(ctx, core.Transaction{
		WalletID:        w.ID,
		Type:            core.TransactionExpense,
		AmountCents:     2_500,
		CategoryID:      &cat.ID,
		Description:     "groceries",
		Notes:           "weekly run",
		TransactionDate: time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	return tx
}

func syncStatus(t *testing.T, repo *storage.SQLiteRepository, id int64) string {
	t.Helper()
	status, err := repo.Queries().TransactionSyncStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("read sync status: %v", err)
	}
	return status
}

func TestHandleLedgerEventExportsRow(t *testing.T) {
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewExportWorker(repo, sheet, 10)
	ctx := context.Background()

	tx := seedTransaction(t, repo)
	msg := amqp.NewLedgerEventMessage(amqp.EntityTransaction, tx.ID, amqp.OpCreated, 1)
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := sheet.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Description != "groceries" || row.AmountCents != 2_500 {
		t.Fatalf("row = %+v", row)
	}
	if row.Wallet != "Checking" || row.Category != "Food" {
		t.Fatalf("resolved names = %q / %q", row.Wallet, row.Category)
	}
	if got := syncStatus(t, repo, tx.ID); got != storage.SyncSynced {
		t.Fatalf("sync status = %q, want synced", got)
	}
}

func TestHandleLedgerEventSkipsDeletedAndVanished(t *testing.T) {
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewExportWorker(repo, sheet, 10)
	ctx := context.Background()

	deleted := amqp.NewLedgerEventMessage(amqp.EntityTransaction, 1, amqp.OpDeleted, 0)
	if err := w.HandleLedgerEvent(ctx, deleted); err != nil {
		t.Fatalf("deleted event: %v", err)
	}

	// Created event for a row that no longer exists must not requeue.
	vanished := amqp.NewLedgerEventMessage(amqp.EntityTransaction, 999, amqp.OpCreated, 1)
	if err := w.HandleLedgerEvent(ctx, vanished); err != nil {
		t.Fatalf("vanished event: %v", err)
	}

	unknown := amqp.NewLedgerEventMessage("wallet", 1, amqp.OpCreated, 1)
	if err := w.HandleLedgerEvent(ctx, unknown); err != nil {
		t.Fatalf("unknown entity: %v", err)
	}

	if len(sheet.Rows()) != 0 {
		t.Fatalf("rows = %d, want 0", len(sheet.Rows()))
	}
}

func TestProcessPendingDrainsBacklog(t *testing.T) {
	repo := newTestRepo(t)
	sheet := memory.New()
	w := NewExportWorker(repo, sheet, 10)
	ctx := context.Background()

	first := seedTransaction(t, repo)
	second, err := repo.Queries().CreateTransaction(ctx, core.Transaction{
		WalletID:        first.WalletID,
		Type:            core.TransactionIncome,
		AmountCents:     10_000,
		Description:     "salary",
		TransactionDate: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("second transaction: %v", err)
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(sheet.Rows()) != 2 {
		t.Fatalf("rows = %d, want 2", len(sheet.Rows()))
	}
	for _, id := range []int64{first.ID, second.ID} {
		if got := syncStatus(t, repo, id); got != storage.SyncSynced {
			t.Fatalf("sync status for %d = %q, want synced", id, got)
		}
	}

	// Nothing left pending; a second run appends nothing.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(sheet.Rows()) != 2 {
		t.Fatalf("rows after second run = %d, want 2", len(sheet.Rows()))
	}
}

type failingSheet struct{}

func (failingSheet) Append(context.Context, sheets.Row) (string, error) {
	return "", context.DeadlineExceeded
}

func TestExportFailureMarksError(t *testing.T) {
	repo := newTestRepo(t)
	w := NewExportWorker(repo, failingSheet{}, 10)
	ctx := context.Background()

	tx := seedTransaction(t, repo)
	msg := amqp.NewLedgerEventMessage(amqp.EntityTransaction, tx.ID, amqp.OpCreated, 1)
	if err := w.HandleLedgerEvent(ctx, msg); err == nil {
		t.Fatal("append failure was swallowed")
	}
	if got := syncStatus(t, repo, tx.ID); got != storage.SyncError {
		t.Fatalf("sync status = %q, want error", got)
	}
}
