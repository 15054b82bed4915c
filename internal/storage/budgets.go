package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

const budgetColumns = `id, category_id, amount_cents, period, month, year, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b         core.Budget
		period    string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&b.ID, &b.CategoryID, &b.AmountCents, &period, &b.Month, &b.Year, &createdAt, &updatedAt)
	if err != nil {
		return core.Budget{}, err
	}
	b.Period = core.BudgetPeriod(period)
	if b.CreatedAt, err = decodeTime(createdAt); err != nil {
		return core.Budget{}, fmt.Errorf("decode created_at: %w", err)
	}
	if b.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return core.Budget{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return b, nil
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO budgets (category_id, amount_cents, period, month, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.CategoryID, b.AmountCents, string(b.Period), b.Month, b.Year,
		encodeTime(now), encodeTime(now))
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	return q.GetBudget(ctx, id)
}

func (q *Queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// GetBudgetByPeriod finds the single budget row for (category, month, year).
func (q *Queries) GetBudgetByPeriod(ctx context.Context, categoryID int64, month, year int) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE category_id = ? AND month = ? AND year = ?`, categoryID, month, year)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget for category %d %d/%d: %w", categoryID, month, year, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget by period: %w", err)
	}
	return b, nil
}

func (q *Queries) ListBudgetsByPeriod(ctx context.Context, month, year int) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE month = ? AND year = ? ORDER BY id`,
		month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets by period: %w", err)
	}
	defer rows.Close()
	return collectBudgets(rows)
}

// ListBudgets returns the full budget table for backup export.
func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	return collectBudgets(rows)
}

func collectBudgets(rows *sql.Rows) ([]core.Budget, error) {
	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (q *Queries) UpdateBudgetCap(ctx context.Context, id, amountCents int64, period core.BudgetPeriod) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET amount_cents = ?, period = ?, updated_at = ? WHERE id = ?`,
		amountCents, string(period), encodeTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update budget cap: %w", err)
	}
	return requireRow(res, "budget", id)
}

func (q *Queries) DeleteBudget(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, "budget", id)
}

// DeleteBudgetsByCategory removes every budget row for a category. Part of
// the ordered category cascade.
func (q *Queries) DeleteBudgetsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("delete category budgets: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO budgets (id, category_id, amount_cents, period, month, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id, amount_cents = excluded.amount_cents,
			period = excluded.period, month = excluded.month, year = excluded.year,
			updated_at = excluded.updated_at`,
		b.ID, b.CategoryID, b.AmountCents, string(b.Period), b.Month, b.Year,
		encodeTime(b.CreatedAt), encodeTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert budget %d: %w", b.ID, err)
	}
	return nil
}
