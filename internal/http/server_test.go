package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", Services{
		Store:        repo,
		Wallets:      services.NewWalletService(repo),
		Categories:   services.NewCategoryService(repo),
		Transactions: services.NewTransactionService(repo, nil),
		Debts:        services.NewDebtService(repo),
		Budgets:      services.NewBudgetService(repo),
		Bills:        services.NewBillService(repo),
		Dashboard:    services.NewDashboardService(repo),
		Backup:       services.NewBackupService(repo),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// doJSON issues a request with a JSON body and decodes the response
// into out when out is non-nil.
func doJSON(t *testing.T, ts *httptest.Server, method, path string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func createWallet(t *testing.T, ts *httptest.Server, name string, balanceCents int64) core.Wallet {
	t.Helper()
	var w core.Wallet
	status := doJSON(t, ts, http.MethodPost, "/api/v1/wallets", map[string]any{
		"name":          name,
		"type":          "bank",
		"balance_cents": balanceCents,
		"currency":      "USD",
	}, &w)
	if status != http.StatusCreated {
		t.Fatalf("create wallet status = %d, want 201", status)
	}
	return w
}

func createCategory(t *testing.T, ts *httptest.Server, name, catType string) core.Category {
	t.Helper()
	var c core.Category
	status := doJSON(t, ts, http.MethodPost, "/api/v1/categories", map[string]any{
		"name": name,
		"type": catType,
	}, &c)
	if status != http.StatusCreated {
		t.Fatalf("create category status = %d, want 201", status)
	}
	return c
}

func TestWalletLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := createWallet(t, ts, "Checking", 100_00)
	if w.ID == 0 {
		t.Fatal("wallet id not assigned")
	}

	var got core.Wallet
	if status := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/v1/wallets/%d", w.ID), nil, &got); status != http.StatusOK {
		t.Fatalf("get wallet status = %d", status)
	}
	if got.Name != "Checking" || got.BalanceCents != 100_00 {
		t.Fatalf("got wallet %+v", got)
	}

	got.Name = "Main Checking"
	var updated core.Wallet
	if status := doJSON(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/wallets/%d", w.ID), got, &updated); status != http.StatusOK {
		t.Fatalf("update wallet status = %d", status)
	}
	if updated.Name != "Main Checking" {
		t.Fatalf("updated name = %q", updated.Name)
	}

	if status := doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/v1/wallets/%d", w.ID), nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete wallet status = %d", status)
	}
	if status := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/v1/wallets/%d", w.ID), nil, nil); status != http.StatusNotFound {
		t.Fatalf("get deleted wallet status = %d, want 404", status)
	}
}

func TestTransactionAdjustsBalance(t *testing.T) {
	ts := newTestServer(t)

	w := createWallet(t, ts, "Checking", 500_00)
	cat := createCategory(t, ts, "Coffee", "expense")

	var tx core.Transaction
	status := doJSON(t, ts, http.MethodPost, "/api/v1/transactions", map[string]any{
		"wallet_id":        w.ID,
		"type":             "expense",
		"amount_cents":     450,
		"category_id":      cat.ID,
		"description":      "flat white",
		"transaction_date": time.Now().UTC().Format(time.RFC3339),
	}, &tx)
	if status != http.StatusCreated {
		t.Fatalf("create transaction status = %d", status)
	}

	var after core.Wallet
	doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/v1/wallets/%d", w.ID), nil, &after)
	if after.BalanceCents != 500_00-450 {
		t.Fatalf("balance after expense = %d, want %d", after.BalanceCents, 500_00-450)
	}

	if status := doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", tx.ID), nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete transaction status = %d", status)
	}
	doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/v1/wallets/%d", w.ID), nil, &after)
	if after.BalanceCents != 500_00 {
		t.Fatalf("balance after rollback = %d, want %d", after.BalanceCents, 500_00)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	w := createWallet(t, ts, "Checking", 0)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing wallet", http.MethodGet, "/api/v1/wallets/9999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/wallets/abc", nil, http.StatusBadRequest},
		{"invalid wallet type", http.MethodPost, "/api/v1/wallets",
			map[string]any{"name": "X", "type": "mattress", "currency": "USD"}, http.StatusBadRequest},
		{"unknown field rejected", http.MethodPost, "/api/v1/wallets",
			map[string]any{"name": "X", "type": "bank", "currency": "USD", "balanec_cents": 1}, http.StatusBadRequest},
		{"negative transaction amount", http.MethodPost, "/api/v1/transactions",
			map[string]any{"wallet_id": w.ID, "type": "expense", "amount_cents": -5,
				"transaction_date": time.Now().UTC().Format(time.RFC3339)}, http.StatusBadRequest},
		{"missing search term", http.MethodGet, "/api/v1/search", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := doJSON(t, ts, tt.method, tt.path, tt.body, nil); status != tt.want {
				t.Fatalf("status = %d, want %d", status, tt.want)
			}
		})
	}
}

func TestBudgetSpendingRefreshesAfterWrite(t *testing.T) {
	ts := newTestServer(t)

	w := createWallet(t, ts, "Checking", 1000_00)
	cat := createCategory(t, ts, "Groceries", "expense")
	now := time.Now().UTC()

	var budget core.Budget
	status := doJSON(t, ts, http.MethodPut, "/api/v1/budgets", map[string]any{
		"category_id":  cat.ID,
		"amount_cents": 300_00,
		"month":        int(now.Month()),
		"year":         now.Year(),
	}, &budget)
	if status != http.StatusOK {
		t.Fatalf("upsert budget status = %d", status)
	}

	// Prime the cache.
	var budgets []core.BudgetWithSpending
	doJSON(t, ts, http.MethodGet, "/api/v1/budgets", nil, &budgets)
	if len(budgets) != 1 || budgets[0].SpentCents != 0 {
		t.Fatalf("initial budgets = %+v", budgets)
	}

	doJSON(t, ts, http.MethodPost, "/api/v1/transactions", map[string]any{
		"wallet_id":        w.ID,
		"type":             "expense",
		"amount_cents":     50_00,
		"category_id":      cat.ID,
		"description":      "weekly shop",
		"transaction_date": now.Format(time.RFC3339),
	}, nil)

	// The write must have flushed the cached view.
	doJSON(t, ts, http.MethodGet, "/api/v1/budgets", nil, &budgets)
	if len(budgets) != 1 || budgets[0].SpentCents != 50_00 {
		t.Fatalf("budgets after expense = %+v", budgets)
	}
}

func TestPayRecurringBillCreatesNext(t *testing.T) {
	ts := newTestServer(t)

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var bill core.BillReminder
	status := doJSON(t, ts, http.MethodPost, "/api/v1/bills", map[string]any{
		"title":        "Rent",
		"amount_cents": 1200_00,
		"due_date":     due.Format(time.RFC3339),
		"is_recurring": true,
		"frequency":    "monthly",
	}, &bill)
	if status != http.StatusCreated {
		t.Fatalf("create bill status = %d", status)
	}

	var paid payBillResponse
	status = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/bills/%d/pay", bill.ID), map[string]any{}, &paid)
	if status != http.StatusOK {
		t.Fatalf("pay bill status = %d", status)
	}
	if !paid.Paid.IsPaid {
		t.Fatal("bill not marked paid")
	}
	if paid.Next == nil {
		t.Fatal("recurring bill produced no successor")
	}
	if got := paid.Next.DueDate; !got.Equal(due.AddDate(0, 1, 0)) {
		t.Fatalf("next due date = %v, want %v", got, due.AddDate(0, 1, 0))
	}
}

func TestDashboardRefreshesAfterBillPaid(t *testing.T) {
	ts := newTestServer(t)

	due := time.Now().UTC().AddDate(0, 0, 2)
	var bill core.BillReminder
	status := doJSON(t, ts, http.MethodPost, "/api/v1/bills", map[string]any{
		"title":        "Electricity",
		"amount_cents": 80_00,
		"due_date":     due.Format(time.RFC3339),
	}, &bill)
	if status != http.StatusCreated {
		t.Fatalf("create bill status = %d", status)
	}

	// Prime the dashboard cache with the bill still unpaid.
	var before core.DashboardSummary
	doJSON(t, ts, http.MethodGet, "/api/v1/dashboard", nil, &before)
	if before.Bills.UnpaidCount != 1 || len(before.BillsDueSoon) != 1 {
		t.Fatalf("dashboard before pay = %+v", before.Bills)
	}

	status = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/bills/%d/pay", bill.ID), map[string]any{}, nil)
	if status != http.StatusOK {
		t.Fatalf("pay bill status = %d", status)
	}

	// The pay must have flushed the cached summary.
	var after core.DashboardSummary
	doJSON(t, ts, http.MethodGet, "/api/v1/dashboard", nil, &after)
	if after.Bills.UnpaidCount != 0 {
		t.Fatalf("dashboard still reports %d unpaid bills", after.Bills.UnpaidCount)
	}
	if len(after.BillsDueSoon) != 0 {
		t.Fatalf("paid bill still listed as due soon: %+v", after.BillsDueSoon)
	}
}

func TestDecimalAmountBodies(t *testing.T) {
	ts := newTestServer(t)
	w := createWallet(t, ts, "Checking", 100_00)

	var tx core.Transaction
	status := doJSON(t, ts, http.MethodPost, "/api/v1/transactions", map[string]any{
		"wallet_id":        w.ID,
		"type":             "expense",
		"amount":           "12.34",
		"description":      "decimal amount",
		"transaction_date": time.Now().UTC().Format(time.RFC3339),
	}, &tx)
	if status != http.StatusCreated {
		t.Fatalf("create transaction status = %d", status)
	}
	if tx.AmountCents != 1234 {
		t.Fatalf("amount = %d, want 1234", tx.AmountCents)
	}

	status = doJSON(t, ts, http.MethodPost, "/api/v1/transactions", map[string]any{
		"wallet_id":        w.ID,
		"type":             "expense",
		"amount":           "twelve",
		"transaction_date": time.Now().UTC().Format(time.RFC3339),
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("malformed amount status = %d, want 400", status)
	}

	var lb core.LendBorrow
	doJSON(t, ts, http.MethodPost, "/api/v1/lend-borrow", map[string]any{
		"type":         "lent",
		"person_name":  "Ray",
		"amount_cents": 50_00,
	}, &lb)

	var pr paymentResponse
	status = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/lend-borrow/%d/payments", lb.ID), map[string]any{
		"amount":       "20,50",
		"payment_date": time.Now().UTC().Format(time.RFC3339),
	}, &pr)
	if status != http.StatusCreated {
		t.Fatalf("add payment status = %d", status)
	}
	if pr.Payment.AmountCents != 20_50 {
		t.Fatalf("payment amount = %d, want 2050", pr.Payment.AmountCents)
	}
}

func TestLendBorrowPaymentFlow(t *testing.T) {
	ts := newTestServer(t)

	var lb core.LendBorrow
	status := doJSON(t, ts, http.MethodPost, "/api/v1/lend-borrow", map[string]any{
		"type":         "lent",
		"person_name":  "Dana",
		"amount_cents": 200_00,
	}, &lb)
	if status != http.StatusCreated {
		t.Fatalf("create lend status = %d", status)
	}
	if lb.RemainingCents != 200_00 {
		t.Fatalf("remaining = %d", lb.RemainingCents)
	}

	var pr paymentResponse
	status = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/lend-borrow/%d/payments", lb.ID), map[string]any{
		"amount_cents": 80_00,
		"payment_date": time.Now().UTC().Format(time.RFC3339),
	}, &pr)
	if status != http.StatusCreated {
		t.Fatalf("add payment status = %d", status)
	}
	if pr.LendBorrow.RemainingCents != 120_00 {
		t.Fatalf("remaining after payment = %d, want 12000", pr.LendBorrow.RemainingCents)
	}

	var summary core.DebtSummary
	doJSON(t, ts, http.MethodGet, "/api/v1/lend-borrow/summary", nil, &summary)
	if summary.Lent.RemainingCents != 120_00 {
		t.Fatalf("summary remaining = %d", summary.Lent.RemainingCents)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
	}
}
