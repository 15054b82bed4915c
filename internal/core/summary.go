package core

import "time"

// TransactionSummary aggregates transactions over an optional date range.
type TransactionSummary struct {
	IncomeCents  int64 `json:"income_cents"`
	ExpenseCents int64 `json:"expense_cents"`
	NetCents     int64 `json:"net_cents"`
	Count        int64 `json:"count"`
}

// CategoryTotal is an amount aggregated by category.
type CategoryTotal struct {
	CategoryID   *int64 `json:"category_id"`
	CategoryName string `json:"category_name"`
	TotalCents   int64  `json:"total_cents"`
	Count        int64  `json:"count"`
}

// DebtSideSummary aggregates one side (lent or borrowed) of the debt book.
type DebtSideSummary struct {
	TotalCents     int64 `json:"total_cents"`
	RemainingCents int64 `json:"remaining_cents"`
	SettledCents   int64 `json:"settled_cents"`
	Count          int64 `json:"count"`
}

// DebtSummary is the full lend/borrow position.
// NetCents = remaining(lent) - remaining(borrowed).
type DebtSummary struct {
	Lent     DebtSideSummary `json:"lent"`
	Borrowed DebtSideSummary `json:"borrowed"`
	NetCents int64           `json:"net_cents"`
}

// BudgetWithSpending is a budget joined with actual period spending.
type BudgetWithSpending struct {
	Budget       Budget  `json:"budget"`
	CategoryName string  `json:"category_name"`
	SpentCents   int64   `json:"spent_cents"`
	RemainCents  int64   `json:"remaining_cents"`
	Percentage   float64 `json:"percentage"`
	IsOverBudget bool    `json:"is_over_budget"`
}

// BudgetSummary totals all budgets of one period.
type BudgetSummary struct {
	BudgetCents     int64 `json:"budget_cents"`
	SpentCents      int64 `json:"spent_cents"`
	RemainCents     int64 `json:"remaining_cents"`
	Count           int   `json:"count"`
	OverBudgetCount int   `json:"over_budget_count"`
}

// TrendPoint is one month of a category spending trend.
type TrendPoint struct {
	Month       int   `json:"month"`
	Year        int   `json:"year"`
	BudgetCents int64 `json:"budget_cents"`
	SpentCents  int64 `json:"spent_cents"`
}

// BillSummary aggregates unpaid reminders. Overdue and upcoming overlap
// exactly when a bill is due at the reference instant.
type BillSummary struct {
	UnpaidCents   int64 `json:"unpaid_cents"`
	UnpaidCount   int64 `json:"unpaid_count"`
	OverdueCents  int64 `json:"overdue_cents"`
	OverdueCount  int64 `json:"overdue_count"`
	UpcomingCents int64 `json:"upcoming_cents"`
	UpcomingCount int64 `json:"upcoming_count"`
}

// DashboardSummary composes the home-screen aggregates.
type DashboardSummary struct {
	TotalBalanceCents int64              `json:"total_balance_cents"`
	TotalDebtCents    int64              `json:"total_debt_cents"`
	NetWorthCents     int64              `json:"net_worth_cents"`
	Debts             DebtSummary        `json:"debts"`
	MonthTransactions TransactionSummary `json:"month_transactions"`
	BillsDueSoon      []BillReminder     `json:"bills_due_soon"`
	OverdueBills      []BillReminder     `json:"overdue_bills"`
	Bills             BillSummary        `json:"bills"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// MonthRange returns the inclusive calendar-month window
// [first day 00:00:00, last day 23:59:59] in UTC.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}
