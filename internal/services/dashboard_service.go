package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/storage"
)

// DashboardService composes the home-screen summary. Each aggregate is an
// independent read, so they run concurrently; any failure fails the whole
// summary rather than returning partial numbers.
type DashboardService struct {
	store *storage.SQLiteRepository
	now   func() time.Time
}

func NewDashboardService(store *storage.SQLiteRepository) *DashboardService {
	return &DashboardService{store: store, now: time.Now}
}

// Summary gathers balances, the current month's cash flow, the debt
// position, and the bill windows. Net worth is total balance minus
// outstanding credit-card debt.
func (s *DashboardService) Summary(ctx context.Context) (core.DashboardSummary, error) {
	q := s.store.Queries()
	now := s.now().UTC()
	monthStart, monthEnd := core.MonthRange(now.Year(), int(now.Month()))

	var out core.DashboardSummary

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.TotalBalanceCents, err = q.SumActiveBalances(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.TotalDebtCents, err = q.SumCreditCardDebt(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Debts, err = q.SummarizeDebts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.MonthTransactions, err = q.SummarizeTransactions(ctx, storage.DateRange{Start: &monthStart, End: &monthEnd})
		return err
	})
	g.Go(func() error {
		var err error
		out.BillsDueSoon, err = q.UnpaidBillsDueBetween(ctx, now, now.AddDate(0, 0, 7))
		return err
	})
	g.Go(func() error {
		var err error
		out.OverdueBills, err = q.OverdueBills(ctx, now)
		return err
	})
	g.Go(func() error {
		var err error
		out.Bills, err = q.SummarizeBills(ctx, now)
		return err
	})

	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, err
	}

	out.NetWorthCents = out.TotalBalanceCents - out.TotalDebtCents
	out.GeneratedAt = now
	return out, nil
}
