package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/core"
	"tally/internal/storage"
)

const defaultCurrency = "USD"

// WalletService manages balance-holding accounts.
type WalletService struct {
	store *storage.SQLiteRepository
}

func NewWalletService(store *storage.SQLiteRepository) *WalletService {
	return &WalletService{store: store}
}

// Create inserts a wallet. The opening balance is taken as-is; it is the
// only balance write that does not come from a transaction.
func (s *WalletService) Create(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	if w.Currency == "" {
		w.Currency = defaultCurrency
	}
	w.IsActive = true
	return s.store.Queries().CreateWallet(ctx, w)
}

func (s *WalletService) Get(ctx context.Context, id int64) (core.Wallet, error) {
	return s.store.Queries().GetWallet(ctx, id)
}

func (s *WalletService) List(ctx context.Context, includeInactive bool) ([]core.Wallet, error) {
	return s.store.Queries().ListWallets(ctx, includeInactive)
}

// Update replaces the wallet metadata. Balance is not touched here; it only
// moves through transactions.
func (s *WalletService) Update(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	if err := s.store.Queries().UpdateWallet(ctx, w); err != nil {
		return core.Wallet{}, err
	}
	return s.store.Queries().GetWallet(ctx, w.ID)
}

// Delete removes the wallet and every transaction that references it as
// source or destination, in that order, inside one database transaction.
// Other wallets keep the balances those transactions gave them.
func (s *WalletService) Delete(ctx context.Context, id int64) error {
	return s.store.ExecTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetWallet(ctx, id); err != nil {
			return err
		}
		n, err := q.DeleteTransactionsByWallet(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.InfoContext(ctx, "Deleted wallet transactions", "wallet_id", id, "count", n)
		}
		if err := q.DetachWalletReferences(ctx, id); err != nil {
			return err
		}
		return q.DeleteWallet(ctx, id)
	})
}

// Deactivate hides the wallet from listings and totals without losing its
// history.
func (s *WalletService) Deactivate(ctx context.Context, id int64) error {
	w, err := s.store.Queries().GetWallet(ctx, id)
	if err != nil {
		return err
	}
	w.IsActive = false
	return s.store.Queries().UpdateWallet(ctx, w)
}

// CreditInfo derives the credit-card view (debt, utilization, available
// credit) of one wallet. Non-credit-card wallets yield ErrInvalidState.
func (s *WalletService) CreditInfo(ctx context.Context, id int64) (core.CreditCardInfo, error) {
	w, err := s.store.Queries().GetWallet(ctx, id)
	if err != nil {
		return core.CreditCardInfo{}, err
	}
	info, err := w.CreditInfo()
	if err != nil {
		return core.CreditCardInfo{}, fmt.Errorf("wallet %d is not a credit card: %w", id, err)
	}
	return info, nil
}

// TotalBalance sums the balances of active wallets.
func (s *WalletService) TotalBalance(ctx context.Context) (int64, error) {
	return s.store.Queries().SumActiveBalances(ctx)
}

// TotalCreditCardDebt sums outstanding credit-card debt as a positive number.
func (s *WalletService) TotalCreditCardDebt(ctx context.Context) (int64, error) {
	return s.store.Queries().SumCreditCardDebt(ctx)
}
