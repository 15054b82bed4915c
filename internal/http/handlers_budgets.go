package http

import (
	"fmt"
	"net/http"

	"tally/internal/core"
)

func (s *Server) budgetCacheKey(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, year := queryMonthYear(r)
	key := s.budgetCacheKey(month, year)

	budgets, found := s.budgetCache.Get(key)
	if !found {
		var err error
		budgets, err = s.budgets.WithSpending(r.Context(), month, year)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.budgetCache.Set(key, budgets)
	}
	if budgets == nil {
		budgets = []core.BudgetWithSpending{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

type upsertBudgetRequest struct {
	CategoryID  int64  `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Period      string `json:"period,omitempty"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req upsertBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	budget, err := s.budgets.Upsert(r.Context(), core.Budget{
		CategoryID:  req.CategoryID,
		AmountCents: req.AmountCents,
		Period:      core.BudgetPeriod(req.Period),
		Month:       req.Month,
		Year:        req.Year,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	budget, err := s.budgets.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.budgets.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	month, year := queryMonthYear(r)
	summary, err := s.budgets.Summary(r.Context(), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request) {
	month, year := queryMonthYear(r)
	threshold := float64(queryInt(r, "threshold", 0))

	alerts, err := s.budgets.Alerts(r.Context(), month, year, threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []core.BudgetWithSpending{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

type copyBudgetsRequest struct {
	FromMonth int `json:"from_month"`
	FromYear  int `json:"from_year"`
	ToMonth   int `json:"to_month"`
	ToYear    int `json:"to_year"`
}

func (s *Server) handleCopyBudgets(w http.ResponseWriter, r *http.Request) {
	var req copyBudgetsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	copied, err := s.budgets.Copy(r.Context(), req.FromMonth, req.FromYear, req.ToMonth, req.ToYear)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]int{"copied": copied})
}

func (s *Server) handleBudgetTrend(w http.ResponseWriter, r *http.Request) {
	categoryID := queryInt64Ptr(r, "category_id")
	if categoryID == nil {
		writeErrorStatus(w, http.StatusBadRequest, "missing category_id")
		return
	}
	months := queryInt(r, "months", 0)

	trend, err := s.budgets.CategoryTrend(r.Context(), *categoryID, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}
