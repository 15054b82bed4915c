package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

// DefaultAlertThreshold is the spent percentage above which a budget is
// flagged when the caller does not supply a threshold.
const DefaultAlertThreshold = 80.0

// BudgetService manages per-category spending caps. There is no database
// uniqueness on (category, month, year); Upsert is the only write path for
// caps, which keeps the pair unique by construction.
type BudgetService struct {
	store *storage.SQLiteRepository
	now   func() time.Time
}

func NewBudgetService(store *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{store: store, now: time.Now}
}

// Upsert sets the cap for (category, month, year), creating the row on
// first write and updating the amount and period afterwards. An empty
// period defaults to monthly.
func (s *BudgetService) Upsert(ctx context.Context, draft core.Budget) (core.Budget, error) {
	if draft.Period == "" {
		draft.Period = core.PeriodMonthly
	}
	if err := draft.Validate(); err != nil {
		return core.Budget{}, err
	}

	var out core.Budget
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetCategory(ctx, draft.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("category %d does not exist: %w", draft.CategoryID, core.ErrConstraint)
			}
			return err
		}

		existing, err := q.GetBudgetByPeriod(ctx, draft.CategoryID, draft.Month, draft.Year)
		switch {
		case err == nil:
			if err := q.UpdateBudgetCap(ctx, existing.ID, draft.AmountCents, draft.Period); err != nil {
				return err
			}
			out, err = q.GetBudget(ctx, existing.ID)
			return err
		case errors.Is(err, core.ErrNotFound):
			out, err = q.CreateBudget(ctx, draft)
			return err
		default:
			return err
		}
	})
	return out, err
}

func (s *BudgetService) Get(ctx context.Context, id int64) (core.Budget, error) {
	return s.store.Queries().GetBudget(ctx, id)
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	return s.store.Queries().DeleteBudget(ctx, id)
}

// WithSpending joins each budget of the period with the expense total of its
// category over that calendar month. A zero-amount budget with any spending
// reports 0% and over budget; percentage against nothing is meaningless.
func (s *BudgetService) WithSpending(ctx context.Context, month, year int) ([]core.BudgetWithSpending, error) {
	q := s.store.Queries()
	budgets, err := q.ListBudgetsByPeriod(ctx, month, year)
	if err != nil {
		return nil, err
	}

	start, end := core.MonthRange(year, month)
	r := storage.DateRange{Start: &start, End: &end}

	out := make([]core.BudgetWithSpending, 0, len(budgets))
	for _, b := range budgets {
		cat, err := q.GetCategory(ctx, b.CategoryID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		spent, err := q.SumCategoryExpenses(ctx, b.CategoryID, r)
		if err != nil {
			return nil, err
		}

		bws := core.BudgetWithSpending{
			Budget:       b,
			CategoryName: cat.Name,
			SpentCents:   spent,
			RemainCents:  b.AmountCents - spent,
		}
		if b.AmountCents > 0 {
			bws.Percentage = float64(spent) / float64(b.AmountCents) * 100
			bws.IsOverBudget = spent > b.AmountCents
		} else {
			bws.IsOverBudget = spent > 0
		}
		out = append(out, bws)
	}
	return out, nil
}

// Summary totals all budgets of one period.
func (s *BudgetService) Summary(ctx context.Context, month, year int) (core.BudgetSummary, error) {
	budgets, err := s.WithSpending(ctx, month, year)
	if err != nil {
		return core.BudgetSummary{}, err
	}

	var sum core.BudgetSummary
	for _, b := range budgets {
		sum.BudgetCents += b.Budget.AmountCents
		sum.SpentCents += b.SpentCents
		sum.Count++
		if b.IsOverBudget {
			sum.OverBudgetCount++
		}
	}
	sum.RemainCents = sum.BudgetCents - sum.SpentCents
	return sum, nil
}

// Alerts returns the budgets whose spending is at or above the threshold
// percentage. Zero or negative threshold falls back to the default.
func (s *BudgetService) Alerts(ctx context.Context, month, year int, threshold float64) ([]core.BudgetWithSpending, error) {
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	budgets, err := s.WithSpending(ctx, month, year)
	if err != nil {
		return nil, err
	}

	var alerts []core.BudgetWithSpending
	for _, b := range budgets {
		if b.Percentage >= threshold || b.IsOverBudget {
			alerts = append(alerts, b)
		}
	}
	return alerts, nil
}

// Copy carries the budgets of one period into another. Categories that
// already have a budget in the target period are left alone, so running a
// copy twice changes nothing.
func (s *BudgetService) Copy(ctx context.Context, fromMonth, fromYear, toMonth, toYear int) (int, error) {
	if toMonth < 1 || toMonth > 12 {
		return 0, core.ErrInvalidMonth
	}

	copied := 0
	err := s.store.ExecTx(ctx, func(q *storage.Queries) error {
		source, err := q.ListBudgetsByPeriod(ctx, fromMonth, fromYear)
		if err != nil {
			return err
		}
		for _, b := range source {
			_, err := q.GetBudgetByPeriod(ctx, b.CategoryID, toMonth, toYear)
			if err == nil {
				continue
			}
			if !errors.Is(err, core.ErrNotFound) {
				return err
			}
			_, err = q.CreateBudget(ctx, core.Budget{
				CategoryID:  b.CategoryID,
				AmountCents: b.AmountCents,
				Period:      b.Period,
				Month:       toMonth,
				Year:        toYear,
			})
			if err != nil {
				return err
			}
			copied++
		}
		return nil
	})
	return copied, err
}

// CategoryTrend walks backwards from the current month and pairs each
// month's budget cap with its actual spending. Months without a budget
// report a zero cap.
func (s *BudgetService) CategoryTrend(ctx context.Context, categoryID int64, months int) ([]core.TrendPoint, error) {
	if months <= 0 {
		months = 6
	}

	q := s.store.Queries()
	now := s.now().UTC()

	points := make([]core.TrendPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		// Anchor to day 1 so stepping back from a month's 29th+ cannot
		// skip February.
		ref := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		year, month := ref.Year(), int(ref.Month())

		point := core.TrendPoint{Month: month, Year: year}
		if b, err := q.GetBudgetByPeriod(ctx, categoryID, month, year); err == nil {
			point.BudgetCents = b.AmountCents
		} else if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}

		start, end := core.MonthRange(year, month)
		spent, err := q.SumCategoryExpenses(ctx, categoryID, storage.DateRange{Start: &start, End: &end})
		if err != nil {
			return nil, err
		}
		point.SpentCents = spent
		points = append(points, point)
	}
	return points, nil
}
