// Package services holds the ledger engine: every multi-entity rule lives
// here, between the HTTP handlers above and the storage layer below. Each
// service owns one aggregate and keeps its invariants inside a single
// database transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/storage"
)

// TransactionService keeps wallet balances consistent with the transaction
// log. Every write applies the row and its balance effect in one database
// transaction, so a crash can never leave a wallet out of sync with its
// history.
type TransactionService struct {
	store  *storage.SQLiteRepository
	events *amqp.Client
	audit  *applog.StructuredLogger
}

func NewTransactionService(store *storage.SQLiteRepository, events *amqp.Client) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
		audit:  applog.Default(applog.ComponentLedger),
	}
}

// TransactionPatch is a partial update. Nil fields keep the current value;
// the Clear flags are how a caller removes an optional reference.
type TransactionPatch struct {
	WalletID        *int64
	Type            *core.TransactionType
	AmountCents     *int64
	CategoryID      *int64
	ClearCategory   bool
	Description     *string
	Notes           *string
	ToWalletID      *int64
	ClearToWallet   bool
	TransferFee     *int64
	TransactionDate *time.Time
}

// Create validates the draft, verifies every referenced wallet, and inserts
// the row together with its balance effect. Reference failures surface as
// ErrConstraint before anything is written.
func (s *TransactionService) Create(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if draft.Type != core.TransactionTransfer {
		draft.ToWalletID = nil
		draft.TransferFee = 0
	}

	var created core.Transaction
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		if err := s.checkReferences(ctx, q, draft); err != nil {
			return err
		}

		var err error
		created, err = q.CreateTransaction(ctx, draft)
		if err != nil {
			return err
		}

		return applyDeltas(ctx, q, core.BalanceDeltas(created, core.Apply))
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.audit.LogTransactionRecorded(ctx, created.ID, created.WalletID, string(created.Type), created.AmountCents)
	s.publishEvent(ctx, created.ID, amqp.OpCreated, 1)
	return created, nil
}

// Update loads the stored row, reverses its balance effect, applies the
// patch, and applies the new effect. Reversing first makes the arithmetic
// independent of which fields changed.
func (s *TransactionService) Update(ctx context.Context, id int64, patch TransactionPatch) (core.Transaction, error) {
	var updated core.Transaction
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		next := applyPatch(old, patch)
		if err := next.Validate(); err != nil {
			return err
		}
		if next.Type != core.TransactionTransfer {
			next.ToWalletID = nil
			next.TransferFee = 0
		}
		if err := s.checkReferences(ctx, q, next); err != nil {
			return err
		}

		if err := applyDeltas(ctx, q, core.BalanceDeltas(old, core.Reverse)); err != nil {
			return err
		}
		if err := q.UpdateTransaction(ctx, next); err != nil {
			return err
		}
		if err := applyDeltas(ctx, q, core.BalanceDeltas(next, core.Apply)); err != nil {
			return err
		}

		updated, err = q.GetTransaction(ctx, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	version, verr := s.store.Queries().TransactionVersion(ctx, id)
	if verr != nil {
		version = 0
	}
	s.publishEvent(ctx, id, amqp.OpUpdated, version)
	return updated, nil
}

// Delete reverses the balance effect and removes the row. Deleting a
// transaction that does not exist is a silent no-op.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := applyDeltas(ctx, q, core.BalanceDeltas(old, core.Reverse)); err != nil {
			return err
		}
		return q.DeleteTransaction(ctx, id)
	})
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.audit.LogTransactionRemoved(ctx, id)
	s.publishEvent(ctx, id, amqp.OpDeleted, 0)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.Queries().GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.Queries().ListTransactions(ctx, f)
}

func (s *TransactionService) Search(ctx context.Context, term string, limit int) ([]core.Transaction, error) {
	return s.store.Queries().SearchTransactions(ctx, term, limit)
}

func (s *TransactionService) Summary(ctx context.Context, r storage.DateRange) (core.TransactionSummary, error) {
	return s.store.Queries().SummarizeTransactions(ctx, r)
}

func (s *TransactionService) SpendingByCategory(ctx context.Context, r storage.DateRange) ([]core.CategoryTotal, error) {
	return s.store.Queries().TotalsByCategory(ctx, core.TransactionExpense, r)
}

func (s *TransactionService) IncomeByCategory(ctx context.Context, r storage.DateRange) ([]core.CategoryTotal, error) {
	return s.store.Queries().TotalsByCategory(ctx, core.TransactionIncome, r)
}

// checkReferences resolves every wallet and category the transaction points
// at. A missing reference is an ErrConstraint, never a half-applied write.
func (s *TransactionService) checkReferences(ctx context.Context, q *storage.Queries, t core.Transaction) error {
	if _, err := q.GetWallet(ctx, t.WalletID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("wallet %d does not exist: %w", t.WalletID, core.ErrConstraint)
		}
		return err
	}
	if t.ToWalletID != nil {
		if *t.ToWalletID == t.WalletID {
			return fmt.Errorf("transfer to the same wallet: %w", core.ErrConstraint)
		}
		if _, err := q.GetWallet(ctx, *t.ToWalletID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("destination wallet %d does not exist: %w", *t.ToWalletID, core.ErrConstraint)
			}
			return err
		}
	}
	if t.CategoryID != nil {
		if _, err := q.GetCategory(ctx, *t.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("category %d does not exist: %w", *t.CategoryID, core.ErrConstraint)
			}
			return err
		}
	}
	return nil
}

func applyDeltas(ctx context.Context, q *storage.Queries, deltas []core.WalletDelta) error {
	for _, d := range deltas {
		if err := q.AdjustWalletBalance(ctx, d.WalletID, d.Cents); err != nil {
			return err
		}
	}
	return nil
}

func applyPatch(t core.Transaction, p TransactionPatch) core.Transaction {
	if p.WalletID != nil {
		t.WalletID = *p.WalletID
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.AmountCents != nil {
		t.AmountCents = *p.AmountCents
	}
	if p.ClearCategory {
		t.CategoryID = nil
	} else if p.CategoryID != nil {
		t.CategoryID = p.CategoryID
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.ClearToWallet {
		t.ToWalletID = nil
	} else if p.ToWalletID != nil {
		t.ToWalletID = p.ToWalletID
	}
	if p.TransferFee != nil {
		t.TransferFee = *p.TransferFee
	}
	if p.TransactionDate != nil {
		t.TransactionDate = *p.TransactionDate
	}
	return t
}

// publishEvent is best effort. A dead or absent broker never fails a write
// that already committed; the worker catches up from sync_status instead.
func (s *TransactionService) publishEvent(ctx context.Context, id int64, op string, version int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.EntityTransaction, id, op, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", amqp.EntityTransaction, "id", id, "op", op, "error", err)
	}
}
