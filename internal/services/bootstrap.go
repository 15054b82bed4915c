package services

import (
	"context"
	"log/slog"

	"tally/internal/core"
	"tally/internal/storage"
)

// Default settings written on first start. Existing keys are never
// overwritten, so user changes survive restarts.
var defaultSettings = map[string]string{
	"currency":              "USD",
	"date_format":           "2006-01-02",
	"theme":                 "light",
	"notifications_enabled": "true",
}

var defaultExpenseCategories = []string{
	"Food & Dining",
	"Groceries",
	"Transportation",
	"Housing",
	"Utilities",
	"Healthcare",
	"Entertainment",
	"Shopping",
	"Education",
	"Travel",
	"Personal Care",
	"Miscellaneous",
}

var defaultIncomeCategories = []string{
	"Salary",
	"Business",
	"Investments",
	"Gifts",
	"Refunds",
	"Other Income",
}

// Bootstrap seeds default settings and categories on an empty database.
// It is idempotent and runs on every start.
func Bootstrap(ctx context.Context, store *storage.SQLiteRepository) error {
	q := store.Queries()

	for key, value := range defaultSettings {
		if err := q.SetSettingIfAbsent(ctx, key, value); err != nil {
			return err
		}
	}

	n, err := q.CountCategories(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	err = store.ExecTx(ctx, func(q *storage.Queries) error {
		for _, name := range defaultExpenseCategories {
			if _, err := q.CreateCategory(ctx, core.Category{Name: name, Type: core.CategoryExpense}); err != nil {
				return err
			}
		}
		for _, name := range defaultIncomeCategories {
			if _, err := q.CreateCategory(ctx, core.Category{Name: name, Type: core.CategoryIncome}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Seeded default categories",
		"expense", len(defaultExpenseCategories),
		"income", len(defaultIncomeCategories))
	return nil
}
