package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

// DebtService tracks money lent and borrowed. The remaining amount of a
// record is always recomputed from the full payment history, never adjusted
// incrementally, so adding and removing payments can never drift.
type DebtService struct {
	store *storage.SQLiteRepository
}

func NewDebtService(store *storage.SQLiteRepository) *DebtService {
	return &DebtService{store: store}
}

// Create opens a lend/borrow record. Remaining starts at the full amount
// and status at pending regardless of what the caller supplied.
func (s *DebtService) Create(ctx context.Context, lb core.LendBorrow) (core.LendBorrow, error) {
	if err := lb.Validate(); err != nil {
		return core.LendBorrow{}, err
	}
	lb.RemainingCents = lb.AmountCents
	lb.Status = core.DebtPending
	if lb.WalletID != nil {
		if _, err := s.store.Queries().GetWallet(ctx, *lb.WalletID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.LendBorrow{}, fmt.Errorf("wallet %d does not exist: %w", *lb.WalletID, core.ErrConstraint)
			}
			return core.LendBorrow{}, err
		}
	}
	return s.store.Queries().CreateLendBorrow(ctx, lb)
}

func (s *DebtService) Get(ctx context.Context, id int64) (core.LendBorrow, error) {
	return s.store.Queries().GetLendBorrow(ctx, id)
}

func (s *DebtService) List(ctx context.Context, f storage.LendBorrowFilter) ([]core.LendBorrow, error) {
	return s.store.Queries().ListLendBorrow(ctx, f)
}

// Update replaces the descriptive fields and, when the principal amount
// changed, recomputes remaining and status against the payment history.
func (s *DebtService) Update(ctx context.Context, lb core.LendBorrow) (core.LendBorrow, error) {
	if err := lb.Validate(); err != nil {
		return core.LendBorrow{}, err
	}

	var updated core.LendBorrow
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetLendBorrow(ctx, lb.ID); err != nil {
			return err
		}
		if err := q.UpdateLendBorrow(ctx, lb); err != nil {
			return err
		}
		if err := recomputeProgress(ctx, q, lb.ID); err != nil {
			return err
		}
		var err error
		updated, err = q.GetLendBorrow(ctx, lb.ID)
		return err
	})
	return updated, err
}

func (s *DebtService) Delete(ctx context.Context, id int64) error {
	return s.store.Queries().DeleteLendBorrow(ctx, id)
}

// AddPayment records a repayment and recomputes the record's progress.
// Overpayment is allowed; remaining clamps at zero and status completes.
func (s *DebtService) AddPayment(ctx context.Context, lendBorrowID int64, p core.LendBorrowPayment) (core.LendBorrowPayment, core.LendBorrow, error) {
	if err := p.Validate(); err != nil {
		return core.LendBorrowPayment{}, core.LendBorrow{}, err
	}
	p.LendBorrowID = lendBorrowID

	var (
		created core.LendBorrowPayment
		record  core.LendBorrow
	)
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetLendBorrow(ctx, lendBorrowID); err != nil {
			return err
		}
		var err error
		created, err = q.CreatePayment(ctx, p)
		if err != nil {
			return err
		}
		if err := recomputeProgress(ctx, q, lendBorrowID); err != nil {
			return err
		}
		record, err = q.GetLendBorrow(ctx, lendBorrowID)
		return err
	})
	if err != nil {
		return core.LendBorrowPayment{}, core.LendBorrow{}, err
	}
	return created, record, nil
}

// DeletePayment removes a repayment and recomputes the parent's progress.
// A completed record reopens when the payment that settled it is removed.
func (s *DebtService) DeletePayment(ctx context.Context, paymentID int64) (core.LendBorrow, error) {
	var record core.LendBorrow
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		p, err := q.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := q.DeletePayment(ctx, paymentID); err != nil {
			return err
		}
		if err := recomputeProgress(ctx, q, p.LendBorrowID); err != nil {
			return err
		}
		record, err = q.GetLendBorrow(ctx, p.LendBorrowID)
		return err
	})
	return record, err
}

func (s *DebtService) Payments(ctx context.Context, lendBorrowID int64) ([]core.LendBorrowPayment, error) {
	return s.store.Queries().ListPayments(ctx, lendBorrowID)
}

func (s *DebtService) Summary(ctx context.Context) (core.DebtSummary, error) {
	return s.store.Queries().SummarizeDebts(ctx)
}

// Overdue lists unsettled records whose due date has passed.
func (s *DebtService) Overdue(ctx context.Context) ([]core.LendBorrow, error) {
	return s.store.Queries().OverdueLendBorrow(ctx, time.Now().UTC())
}

// recomputeProgress re-derives remaining and status from the payment sum.
func recomputeProgress(ctx context.Context, q *storage.Queries, lendBorrowID int64) error {
	lb, err := q.GetLendBorrow(ctx, lendBorrowID)
	if err != nil {
		return err
	}
	paid, err := q.SumPayments(ctx, lendBorrowID)
	if err != nil {
		return err
	}
	remaining := lb.AmountCents - paid
	if remaining < 0 {
		remaining = 0
	}
	return q.SetLendBorrowProgress(ctx, lendBorrowID, remaining, core.DeriveDebtStatus(lb.AmountCents, remaining))
}
