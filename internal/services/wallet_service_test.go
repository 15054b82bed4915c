package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

func TestWalletCreateDefaults(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewWalletService(repo)

	w, err := svc.Create(context.Background(), core.Wallet{Name: "Cash", Type: core.WalletCash})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Currency != "USD" || !w.IsActive {
		t.Fatalf("created = %+v, want USD active", w)
	}
}

func TestWalletCreateValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewWalletService(repo)

	if _, err := svc.Create(context.Background(), core.Wallet{Name: "  ", Type: core.WalletCash}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("blank name err = %v, want ErrEmptyName", err)
	}
	if _, err := svc.Create(context.Background(), core.Wallet{Name: "X", Type: "checking"}); !errors.Is(err, core.ErrInvalidWalletType) {
		t.Fatalf("bad type err = %v, want ErrInvalidWalletType", err)
	}
}

func TestWalletDeleteCascadesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	wallets := NewWalletService(repo)
	txs := NewTransactionService(repo, nil)
	ctx := context.Background()

	doomed := newTestWallet(t, repo, "Doomed", 10_000)
	other := newTestWallet(t, repo, "Other", 0)

	// A transfer into the surviving wallet and a plain expense.
	if _, err := txs.Create(ctx, core.Transaction{
		WalletID: doomed.ID, Type: core.TransactionTransfer, AmountCents: 2_000,
		ToWalletID: ptrTo(other.ID), TransactionDate: date(2025, time.March, 1),
	}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := txs.Create(ctx, core.Transaction{
		WalletID: doomed.ID, Type: core.TransactionExpense, AmountCents: 500,
		TransactionDate: date(2025, time.March, 2),
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	if err := wallets.Delete(ctx, doomed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := wallets.Get(ctx, doomed.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted wallet err = %v, want ErrNotFound", err)
	}
	// The surviving wallet keeps the balance the transfer gave it.
	if got := walletBalance(t, repo, other.ID); got != 2_000 {
		t.Fatalf("survivor balance = %d, want 2000", got)
	}
	remaining, err := txs.List(ctx, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("transactions = %d, want 0", len(remaining))
	}
}

func TestWalletDeleteDetachesDebtAndBillRefs(t *testing.T) {
	repo := newTestRepo(t)
	wallets := NewWalletService(repo)
	debts := NewDebtService(repo)
	bills := NewBillService(repo)
	ctx := context.Background()

	w := newTestWallet(t, repo, "Linked", 0)
	lb, err := debts.Create(ctx, core.LendBorrow{Type: core.Lent, PersonName: "Alex", AmountCents: 100, WalletID: ptrTo(w.ID)})
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	bill, err := bills.Create(ctx, core.BillReminder{Title: "Rent", DueDate: date(2025, time.March, 1), WalletID: ptrTo(w.ID)})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	if err := wallets.Delete(ctx, w.ID); err != nil {
		t.Fatalf("delete wallet: %v", err)
	}

	gotDebt, err := debts.Get(ctx, lb.ID)
	if err != nil {
		t.Fatalf("get debt: %v", err)
	}
	if gotDebt.WalletID != nil {
		t.Fatalf("debt wallet ref survived: %v", *gotDebt.WalletID)
	}
	gotBill, err := bills.Get(ctx, bill.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if gotBill.WalletID != nil {
		t.Fatalf("bill wallet ref survived: %v", *gotBill.WalletID)
	}
}

func TestWalletDeleteMissing(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewWalletService(repo)
	if err := svc.Delete(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWalletCreditInfo(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewWalletService(repo)
	ctx := context.Background()

	card, err := svc.Create(ctx, core.Wallet{
		Name:             "Card",
		Type:             core.WalletCreditCard,
		BalanceCents:     -30_000,
		CreditLimitCents: ptrTo(int64(100_000)),
		CashbackRate:     ptrTo(1.5),
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	info, err := svc.CreditInfo(ctx, card.ID)
	if err != nil {
		t.Fatalf("credit info: %v", err)
	}
	if info.DebtCents != 30_000 || info.Utilization != 30 || info.AvailableCents != 70_000 {
		t.Fatalf("info = %+v", info)
	}
	if info.CashbackRate != 1.5 {
		t.Fatalf("cashback = %v", info.CashbackRate)
	}

	bank := newTestWallet(t, repo, "Bank", 0)
	if _, err := svc.CreditInfo(ctx, bank.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("non-card err = %v, want ErrInvalidState", err)
	}
}

func TestWalletTotals(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewWalletService(repo)
	ctx := context.Background()

	newTestWallet(t, repo, "A", 10_000)
	newTestWallet(t, repo, "B", 5_000)
	if _, err := svc.Create(ctx, core.Wallet{
		Name: "Card", Type: core.WalletCreditCard, BalanceCents: -2_000,
	}); err != nil {
		t.Fatalf("create card: %v", err)
	}

	// Deactivated wallets drop out of the totals.
	hidden := newTestWallet(t, repo, "Hidden", 99_000)
	if err := svc.Deactivate(ctx, hidden.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	total, err := svc.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	if total != 13_000 {
		t.Fatalf("total = %d, want 13000", total)
	}

	debt, err := svc.TotalCreditCardDebt(ctx)
	if err != nil {
		t.Fatalf("total debt: %v", err)
	}
	if debt != 2_000 {
		t.Fatalf("debt = %d, want 2000", debt)
	}
}
