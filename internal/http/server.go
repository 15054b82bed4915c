// Package http exposes the ledger as a JSON API. Handlers stay thin:
// parse, call the service, map the error taxonomy to a status code.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/services"
	"tally/internal/storage"
)

type Server struct {
	http.Server

	store        *storage.SQLiteRepository
	wallets      *services.WalletService
	categories   *services.CategoryService
	transactions *services.TransactionService
	debts        *services.DebtService
	budgets      *services.BudgetService
	bills        *services.BillService
	dashboard    *services.DashboardService
	backup       *services.BackupService

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware

	// Derived views are cached briefly; every write flushes them.
	dashboardCache *cache.LRUCache[core.DashboardSummary]
	budgetCache    *cache.LRUCache[[]core.BudgetWithSpending]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// Services bundles the dependencies of the API server.
type Services struct {
	Store        *storage.SQLiteRepository
	Wallets      *services.WalletService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Debts        *services.DebtService
	Budgets      *services.BudgetService
	Bills        *services.BillService
	Dashboard    *services.DashboardService
	Backup       *services.BackupService
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Services) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()
	s := &Server{
		store:        deps.Store,
		wallets:      deps.Wallets,
		categories:   deps.Categories,
		transactions: deps.Transactions,
		debts:        deps.Debts,
		budgets:      deps.Budgets,
		bills:        deps.Bills,
		dashboard:    deps.Dashboard,
		backup:       deps.Backup,

		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector: detector,
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),

		dashboardCache: cache.NewLRUCache[core.DashboardSummary](16, 30*time.Second),
		budgetCache:    cache.NewLRUCache[[]core.BudgetWithSpending](64, time.Minute),
		cacheManager:   cache.NewManager(),
	}
	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.Register(s.budgetCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/v1/wallets", s.handleListWallets)
	mux.HandleFunc("POST /api/v1/wallets", s.handleCreateWallet)
	mux.HandleFunc("GET /api/v1/wallets/totals", s.handleWalletTotals)
	mux.HandleFunc("GET /api/v1/wallets/{id}", s.handleGetWallet)
	mux.HandleFunc("PUT /api/v1/wallets/{id}", s.handleUpdateWallet)
	mux.HandleFunc("DELETE /api/v1/wallets/{id}", s.handleDeleteWallet)
	mux.HandleFunc("POST /api/v1/wallets/{id}/deactivate", s.handleDeactivateWallet)
	mux.HandleFunc("GET /api/v1/wallets/{id}/credit", s.handleWalletCredit)

	mux.HandleFunc("GET /api/v1/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/v1/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/v1/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("GET /api/v1/categories/{id}/subcategories", s.handleListSubcategories)

	mux.HandleFunc("GET /api/v1/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/v1/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/v1/transactions/summary", s.handleTransactionSummary)
	mux.HandleFunc("GET /api/v1/transactions/by-category", s.handleTransactionsByCategory)
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/v1/search", s.handleSearch)

	mux.HandleFunc("GET /api/v1/lend-borrow", s.handleListDebts)
	mux.HandleFunc("POST /api/v1/lend-borrow", s.handleCreateDebt)
	mux.HandleFunc("GET /api/v1/lend-borrow/summary", s.handleDebtSummary)
	mux.HandleFunc("GET /api/v1/lend-borrow/overdue", s.handleOverdueDebts)
	mux.HandleFunc("GET /api/v1/lend-borrow/{id}", s.handleGetDebt)
	mux.HandleFunc("PUT /api/v1/lend-borrow/{id}", s.handleUpdateDebt)
	mux.HandleFunc("DELETE /api/v1/lend-borrow/{id}", s.handleDeleteDebt)
	mux.HandleFunc("GET /api/v1/lend-borrow/{id}/payments", s.handleListPayments)
	mux.HandleFunc("POST /api/v1/lend-borrow/{id}/payments", s.handleAddPayment)
	mux.HandleFunc("DELETE /api/v1/payments/{id}", s.handleDeletePayment)

	mux.HandleFunc("GET /api/v1/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/v1/budgets", s.handleUpsertBudget)
	mux.HandleFunc("GET /api/v1/budgets/summary", s.handleBudgetSummary)
	mux.HandleFunc("GET /api/v1/budgets/alerts", s.handleBudgetAlerts)
	mux.HandleFunc("POST /api/v1/budgets/copy", s.handleCopyBudgets)
	mux.HandleFunc("GET /api/v1/budgets/trend", s.handleBudgetTrend)
	mux.HandleFunc("GET /api/v1/budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/v1/bills", s.handleListBills)
	mux.HandleFunc("POST /api/v1/bills", s.handleCreateBill)
	mux.HandleFunc("GET /api/v1/bills/upcoming", s.handleUpcomingBills)
	mux.HandleFunc("GET /api/v1/bills/overdue", s.handleOverdueBills)
	mux.HandleFunc("GET /api/v1/bills/due-today", s.handleBillsDueToday)
	mux.HandleFunc("GET /api/v1/bills/reminders", s.handleBillReminders)
	mux.HandleFunc("GET /api/v1/bills/summary", s.handleBillSummary)
	mux.HandleFunc("GET /api/v1/bills/{id}", s.handleGetBill)
	mux.HandleFunc("PUT /api/v1/bills/{id}", s.handleUpdateBill)
	mux.HandleFunc("DELETE /api/v1/bills/{id}", s.handleDeleteBill)
	mux.HandleFunc("POST /api/v1/bills/{id}/pay", s.handlePayBill)
	mux.HandleFunc("POST /api/v1/bills/{id}/snooze", s.handleSnoozeBill)

	mux.HandleFunc("GET /api/v1/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/v1/settings", s.handleListSettings)
	mux.HandleFunc("PUT /api/v1/settings/{key}", s.handlePutSetting)

	mux.HandleFunc("GET /api/v1/backup", s.handleExportBackup)
	mux.HandleFunc("POST /api/v1/backup", s.handleImportBackup)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.recover(s.tracer.Middleware(s.headers.Middleware(s.guard(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// recover turns a handler panic into a 500 instead of tearing down the
// connection, and logs the stack for diagnosis.
func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "Handler panic",
					"component", "http",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				writeErrorStatus(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// guard applies suspicious-request detection and rate limiting. Reads
// stay unthrottled; mutations share one per-client budget.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := s.detector.ExtractClientIP(r)

		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request",
				"component", "security",
				"client_ip", clientIP,
				"method", r.Method,
				"path", r.URL.Path)
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !s.limiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"component", "rate_limit",
					"client_ip", clientIP,
					"method", r.Method,
					"path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeErrorStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// invalidateDerived flushes cached aggregates after any write.
func (s *Server) invalidateDerived() {
	s.dashboardCache.Flush()
	s.budgetCache.Flush()
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Ready means the database answers a trivial query.
	if _, err := s.store.Queries().CountCategories(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "component", "http", "error", err)
		writeErrorStatus(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
