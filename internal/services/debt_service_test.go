package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

func newTestDebt(t *testing.T, svc *DebtService, lbType core.LendBorrowType, amount int64) core.LendBorrow {
	t.Helper()
	lb, err := svc.Create(context.Background(), core.LendBorrow{
		Type:        lbType,
		PersonName:  "Alex",
		AmountCents: amount,
	})
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	return lb
}

func TestDebtCreateDefaults(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)

	lb, err := svc.Create(context.Background(), core.LendBorrow{
		Type:        core.Lent,
		PersonName:  "Alex",
		AmountCents: 5_000,
		// Caller-supplied progress is ignored.
		RemainingCents: 1,
		Status:         core.DebtCompleted,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lb.RemainingCents != 5_000 || lb.Status != core.DebtPending {
		t.Fatalf("created = %+v, want remaining 5000 pending", lb)
	}
}

func TestDebtCreateRejectsMissingWallet(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)

	_, err := svc.Create(context.Background(), core.LendBorrow{
		Type:        core.Borrowed,
		PersonName:  "Alex",
		AmountCents: 5_000,
		WalletID:    ptrTo(int64(999)),
	})
	if !errors.Is(err, core.ErrConstraint) {
		t.Fatalf("err = %v, want ErrConstraint", err)
	}
}

func TestDebtPaymentLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	ctx := context.Background()
	lb := newTestDebt(t, svc, core.Lent, 10_000)

	// First payment: partial.
	p1, rec, err := svc.AddPayment(ctx, lb.ID, core.LendBorrowPayment{
		AmountCents: 4_000, PaymentDate: date(2025, time.March, 1),
	})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if rec.RemainingCents != 6_000 || rec.Status != core.DebtPartial {
		t.Fatalf("after first payment = %+v", rec)
	}

	// Second payment settles it.
	_, rec, err = svc.AddPayment(ctx, lb.ID, core.LendBorrowPayment{
		AmountCents: 6_000, PaymentDate: date(2025, time.March, 15),
	})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if rec.RemainingCents != 0 || rec.Status != core.DebtCompleted {
		t.Fatalf("after settlement = %+v", rec)
	}

	// Removing the first payment reopens the record from the full history.
	rec, err = svc.DeletePayment(ctx, p1.ID)
	if err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if rec.RemainingCents != 4_000 || rec.Status != core.DebtPartial {
		t.Fatalf("after payment removal = %+v", rec)
	}
}

func TestDebtOverpaymentClampsToZero(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	lb := newTestDebt(t, svc, core.Borrowed, 3_000)

	_, rec, err := svc.AddPayment(context.Background(), lb.ID, core.LendBorrowPayment{
		AmountCents: 5_000, PaymentDate: date(2025, time.March, 1),
	})
	if err != nil {
		t.Fatalf("overpayment: %v", err)
	}
	if rec.RemainingCents != 0 || rec.Status != core.DebtCompleted {
		t.Fatalf("after overpayment = %+v", rec)
	}
}

func TestDebtPaymentValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	lb := newTestDebt(t, svc, core.Lent, 3_000)

	_, _, err := svc.AddPayment(context.Background(), lb.ID, core.LendBorrowPayment{
		AmountCents: 0, PaymentDate: date(2025, time.March, 1),
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero payment err = %v, want ErrInvalidAmount", err)
	}

	_, _, err = svc.AddPayment(context.Background(), 999, core.LendBorrowPayment{
		AmountCents: 100, PaymentDate: date(2025, time.March, 1),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing record err = %v, want ErrNotFound", err)
	}
}

func TestDebtUpdateAmountRecomputesStatus(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	ctx := context.Background()
	lb := newTestDebt(t, svc, core.Lent, 10_000)

	if _, _, err := svc.AddPayment(ctx, lb.ID, core.LendBorrowPayment{
		AmountCents: 4_000, PaymentDate: date(2025, time.March, 1),
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	// Shrinking the principal below the paid sum completes the record.
	lb.AmountCents = 4_000
	updated, err := svc.Update(ctx, lb)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.RemainingCents != 0 || updated.Status != core.DebtCompleted {
		t.Fatalf("updated = %+v, want completed", updated)
	}
}

func TestDebtDeleteCascadesPayments(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	ctx := context.Background()
	lb := newTestDebt(t, svc, core.Lent, 10_000)

	if _, _, err := svc.AddPayment(ctx, lb.ID, core.LendBorrowPayment{
		AmountCents: 1_000, PaymentDate: date(2025, time.March, 1),
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	if err := svc.Delete(ctx, lb.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	payments, err := repo.Queries().ListAllPayments(ctx)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("payments = %d, want 0 after cascade", len(payments))
	}
}

func TestDebtSummary(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	ctx := context.Background()

	lent := newTestDebt(t, svc, core.Lent, 10_000)
	newTestDebt(t, svc, core.Borrowed, 4_000)

	if _, _, err := svc.AddPayment(ctx, lent.ID, core.LendBorrowPayment{
		AmountCents: 3_000, PaymentDate: date(2025, time.March, 1),
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Lent.TotalCents != 10_000 || sum.Lent.RemainingCents != 7_000 || sum.Lent.SettledCents != 3_000 {
		t.Fatalf("lent side = %+v", sum.Lent)
	}
	if sum.Borrowed.RemainingCents != 4_000 {
		t.Fatalf("borrowed side = %+v", sum.Borrowed)
	}
	if sum.NetCents != 3_000 {
		t.Fatalf("net = %d, want 3000", sum.NetCents)
	}
}

func TestDebtOverdue(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	ctx := context.Background()

	past := date(2020, time.January, 1)
	future := time.Now().UTC().AddDate(1, 0, 0)

	if _, err := svc.Create(ctx, core.LendBorrow{Type: core.Lent, PersonName: "Late", AmountCents: 100, DueDate: &past}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, core.LendBorrow{Type: core.Lent, PersonName: "Early", AmountCents: 100, DueDate: &future}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, core.LendBorrow{Type: core.Lent, PersonName: "NoDue", AmountCents: 100}); err != nil {
		t.Fatalf("create: %v", err)
	}

	overdue, err := svc.Overdue(ctx)
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].PersonName != "Late" {
		t.Fatalf("overdue = %+v, want just Late", overdue)
	}
}

func TestDebtListFilter(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewDebtService(repo)
	ctx := context.Background()

	newTestDebt(t, svc, core.Lent, 100)
	newTestDebt(t, svc, core.Borrowed, 200)

	lent, err := svc.List(ctx, storage.LendBorrowFilter{Type: core.Lent})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lent) != 1 || lent[0].Type != core.Lent {
		t.Fatalf("filtered list = %+v", lent)
	}

	all, err := svc.List(ctx, storage.LendBorrowFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}
