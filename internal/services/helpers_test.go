package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestWallet(t *testing.T, repo *storage.SQLiteRepository, name string, balanceCents int64) core.Wallet {
	t.Helper()
	w, err := repo.Queries().CreateWallet(context.Background(), core.Wallet{
		Name:         name,
		Type:         core.WalletBank,
		BalanceCents: balanceCents,
		Currency:     "USD",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func newTestCategory(t *testing.T, repo *storage.SQLiteRepository, name string, catType core.CategoryType) core.Category {
	t.Helper()
	c, err := repo.Queries().CreateCategory(context.Background(), core.Category{Name: name, Type: catType})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func walletBalance(t *testing.T, repo *storage.SQLiteRepository, id int64) int64 {
	t.Helper()
	w, err := repo.Queries().GetWallet(context.Background(), id)
	if err != nil {
		t.Fatalf("get wallet %d: %v", id, err)
	}
	return w.BalanceCents
}

func ptrTo[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}
