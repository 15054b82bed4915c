package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
)

func monthlyCap(categoryID, amountCents int64, month, year int) core.Budget {
	return core.Budget{CategoryID: categoryID, AmountCents: amountCents, Month: month, Year: year}
}

func seedExpense(t *testing.T, svc *TransactionService, walletID int64, categoryID *int64, amount int64, when time.Time) {
	t.Helper()
	_, err := svc.Create(context.Background(), core.Transaction{
		WalletID:        walletID,
		Type:            core.TransactionExpense,
		AmountCents:     amount,
		CategoryID:      categoryID,
		TransactionDate: when,
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
}

func TestBudgetUpsertCreatesThenUpdates(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()
	cat := newTestCategory(t, repo, "Food", core.CategoryExpense)

	first, err := svc.Upsert(ctx, monthlyCap(cat.ID, 50_000, 3, 2025))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := svc.Upsert(ctx, monthlyCap(cat.ID, 60_000, 3, 2025))
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %d != %d", second.ID, first.ID)
	}
	if second.AmountCents != 60_000 {
		t.Fatalf("amount = %d, want 60000", second.AmountCents)
	}

	budgets, err := repo.Queries().ListBudgetsByPeriod(ctx, 3, 2025)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("budgets = %d, want 1", len(budgets))
	}
}

func TestBudgetUpsertRejectsBadInput(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()
	cat := newTestCategory(t, repo, "Food", core.CategoryExpense)

	if _, err := svc.Upsert(ctx, monthlyCap(999, 1_000, 3, 2025)); !errors.Is(err, core.ErrConstraint) {
		t.Fatalf("missing category err = %v, want ErrConstraint", err)
	}
	if _, err := svc.Upsert(ctx, monthlyCap(cat.ID, 1_000, 13, 2025)); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("bad month err = %v, want ErrInvalidMonth", err)
	}
	if _, err := svc.Upsert(ctx, monthlyCap(cat.ID, -1, 3, 2025)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("negative amount err = %v, want ErrInvalidAmount", err)
	}
}

func TestBudgetUpsertPeriod(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()
	cat := newTestCategory(t, repo, "Insurance", core.CategoryExpense)

	yearly, err := svc.Upsert(ctx, core.Budget{
		CategoryID:  cat.ID,
		AmountCents: 120_000,
		Period:      core.PeriodYearly,
		Month:       1,
		Year:        2025,
	})
	if err != nil {
		t.Fatalf("upsert yearly: %v", err)
	}
	if yearly.Period != core.PeriodYearly {
		t.Fatalf("period = %q, want yearly", yearly.Period)
	}

	// Re-upserting without a period keeps the row and resets it to monthly.
	updated, err := svc.Upsert(ctx, monthlyCap(cat.ID, 130_000, 1, 2025))
	if err != nil {
		t.Fatalf("upsert monthly: %v", err)
	}
	if updated.ID != yearly.ID {
		t.Fatalf("upsert created a second row: %d != %d", updated.ID, yearly.ID)
	}
	if updated.Period != core.PeriodMonthly || updated.AmountCents != 130_000 {
		t.Fatalf("updated = %+v", updated)
	}

	bad := core.Budget{CategoryID: cat.ID, AmountCents: 1_000, Period: "weekly", Month: 1, Year: 2025}
	if _, err := svc.Upsert(ctx, bad); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("bad period err = %v, want ErrInvalidPeriod", err)
	}
}

func TestBudgetWithSpending(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)
	txs := NewTransactionService(repo, nil)
	ctx := context.Background()

	w := newTestWallet(t, repo, "Checking", 0)
	food := newTestCategory(t, repo, "Food", core.CategoryExpense)
	fun := newTestCategory(t, repo, "Fun", core.CategoryExpense)

	if _, err := budgets.Upsert(ctx, monthlyCap(food.ID, 10_000, 3, 2025)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := budgets.Upsert(ctx, monthlyCap(fun.ID, 5_000, 3, 2025)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	seedExpense(t, txs, w.ID, ptrTo(food.ID), 7_500, date(2025, time.March, 10))
	seedExpense(t, txs, w.ID, ptrTo(fun.ID), 6_000, date(2025, time.March, 12))
	// Outside the period; must not count.
	seedExpense(t, txs, w.ID, ptrTo(food.ID), 9_999, date(2025, time.April, 1))

	got, err := budgets.WithSpending(ctx, 3, 2025)
	if err != nil {
		t.Fatalf("with spending: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}

	byName := map[string]core.BudgetWithSpending{}
	for _, b := range got {
		byName[b.CategoryName] = b
	}

	foodRow := byName["Food"]
	if foodRow.SpentCents != 7_500 || foodRow.RemainCents != 2_500 || foodRow.IsOverBudget {
		t.Fatalf("food row = %+v", foodRow)
	}
	if foodRow.Percentage != 75 {
		t.Fatalf("food percentage = %v, want 75", foodRow.Percentage)
	}

	funRow := byName["Fun"]
	if !funRow.IsOverBudget || funRow.RemainCents != -1_000 {
		t.Fatalf("fun row = %+v, want over budget", funRow)
	}
}

func TestBudgetZeroAmountPolicy(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)
	txs := NewTransactionService(repo, nil)
	ctx := context.Background()

	w := newTestWallet(t, repo, "Checking", 0)
	cat := newTestCategory(t, repo, "Frozen", core.CategoryExpense)

	if _, err := budgets.Upsert(ctx, monthlyCap(cat.ID, 0, 3, 2025)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	seedExpense(t, txs, w.ID, ptrTo(cat.ID), 100, date(2025, time.March, 1))

	got, err := budgets.WithSpending(ctx, 3, 2025)
	if err != nil {
		t.Fatalf("with spending: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	if got[0].Percentage != 0 || !got[0].IsOverBudget {
		t.Fatalf("zero-cap row = %+v, want percentage 0 and over budget", got[0])
	}
}

func TestBudgetSummaryAndAlerts(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)
	txs := NewTransactionService(repo, nil)
	ctx := context.Background()

	w := newTestWallet(t, repo, "Checking", 0)
	a := newTestCategory(t, repo, "A", core.CategoryExpense)
	b := newTestCategory(t, repo, "B", core.CategoryExpense)
	c := newTestCategory(t, repo, "C", core.CategoryExpense)

	for _, row := range []struct {
		cat   core.Category
		cap   int64
		spent int64
	}{
		{a, 10_000, 9_000},  // 90%, alert
		{b, 10_000, 11_000}, // over, alert
		{c, 10_000, 1_000},  // quiet
	} {
		if _, err := budgets.Upsert(ctx, monthlyCap(row.cat.ID, row.cap, 3, 2025)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		seedExpense(t, txs, w.ID, ptrTo(row.cat.ID), row.spent, date(2025, time.March, 5))
	}

	sum, err := budgets.Summary(ctx, 3, 2025)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.BudgetCents != 30_000 || sum.SpentCents != 21_000 || sum.RemainCents != 9_000 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Count != 3 || sum.OverBudgetCount != 1 {
		t.Fatalf("counts = %+v", sum)
	}

	alerts, err := budgets.Alerts(ctx, 3, 2025, 0)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(alerts))
	}
}

func TestBudgetCopyIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()

	a := newTestCategory(t, repo, "A", core.CategoryExpense)
	b := newTestCategory(t, repo, "B", core.CategoryExpense)

	if _, err := svc.Upsert(ctx, monthlyCap(a.ID, 10_000, 3, 2025)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.Upsert(ctx, monthlyCap(b.ID, 5_000, 3, 2025)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Target already has a budget for A with its own amount.
	if _, err := svc.Upsert(ctx, monthlyCap(a.ID, 99_000, 4, 2025)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	copied, err := svc.Copy(ctx, 3, 2025, 4, 2025)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if copied != 1 {
		t.Fatalf("copied = %d, want 1", copied)
	}

	// Second run copies nothing and changes nothing.
	copied, err = svc.Copy(ctx, 3, 2025, 4, 2025)
	if err != nil {
		t.Fatalf("second copy: %v", err)
	}
	if copied != 0 {
		t.Fatalf("second copy = %d, want 0", copied)
	}

	existing, err := repo.Queries().GetBudgetByPeriod(ctx, a.ID, 4, 2025)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if existing.AmountCents != 99_000 {
		t.Fatalf("existing target budget overwritten: %d", existing.AmountCents)
	}
}

func TestBudgetCategoryTrend(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo)
	budgets.now = func() time.Time { return date(2025, time.March, 31) }
	txs := NewTransactionService(repo, nil)
	ctx := context.Background()

	w := newTestWallet(t, repo, "Checking", 0)
	cat := newTestCategory(t, repo, "Food", core.CategoryExpense)

	if _, err := budgets.Upsert(ctx, monthlyCap(cat.ID, 10_000, 2, 2025)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	seedExpense(t, txs, w.ID, ptrTo(cat.ID), 2_000, date(2025, time.February, 10))
	seedExpense(t, txs, w.ID, ptrTo(cat.ID), 3_000, date(2025, time.March, 10))

	points, err := budgets.CategoryTrend(ctx, cat.ID, 3)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}

	// Oldest first: Jan (no budget, no spend), Feb, Mar.
	if points[0].Month != 1 || points[0].BudgetCents != 0 || points[0].SpentCents != 0 {
		t.Fatalf("jan = %+v", points[0])
	}
	if points[1].Month != 2 || points[1].BudgetCents != 10_000 || points[1].SpentCents != 2_000 {
		t.Fatalf("feb = %+v", points[1])
	}
	if points[2].Month != 3 || points[2].BudgetCents != 0 || points[2].SpentCents != 3_000 {
		t.Fatalf("mar = %+v", points[2])
	}
}
