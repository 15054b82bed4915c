package http

import (
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txType := core.TransactionType(r.URL.Query().Get("type"))
	if txType != "" && !txType.Valid() {
		writeErrorStatus(w, http.StatusBadRequest, "invalid transaction type")
		return
	}

	filter := storage.TransactionFilter{
		WalletID:   queryInt64Ptr(r, "wallet_id"),
		Type:       txType,
		CategoryID: queryInt64Ptr(r, "category_id"),
		Start:      queryDatePtr(r, "start"),
		End:        queryDatePtr(r, "end"),
		Limit:      queryInt(r, "limit", 0),
	}

	txs, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// createTransactionRequest accepts the amount either as integer cents or
// as a decimal string ("12.34", comma separator accepted). The string
// form wins when both are present.
type createTransactionRequest struct {
	core.Transaction
	Amount string `json:"amount,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft := req.Transaction
	if req.Amount != "" {
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		draft.AmountCents = cents
	}
	tx, err := s.transactions.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type transactionPatchRequest struct {
	WalletID        *int64     `json:"wallet_id"`
	Type            *string    `json:"type"`
	AmountCents     *int64     `json:"amount_cents"`
	CategoryID      *int64     `json:"category_id"`
	ClearCategory   bool       `json:"clear_category"`
	Description     *string    `json:"description"`
	Notes           *string    `json:"notes"`
	ToWalletID      *int64     `json:"to_wallet_id"`
	ClearToWallet   bool       `json:"clear_to_wallet"`
	TransferFee     *int64     `json:"transfer_fee_cents"`
	TransactionDate *time.Time `json:"transaction_date"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req transactionPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := services.TransactionPatch{
		WalletID:        req.WalletID,
		AmountCents:     req.AmountCents,
		CategoryID:      req.CategoryID,
		ClearCategory:   req.ClearCategory,
		Description:     req.Description,
		Notes:           req.Notes,
		ToWalletID:      req.ToWalletID,
		ClearToWallet:   req.ClearToWallet,
		TransferFee:     req.TransferFee,
		TransactionDate: req.TransactionDate,
	}
	if req.Type != nil {
		t := core.TransactionType(*req.Type)
		patch.Type = &t
	}

	tx, err := s.transactions.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

// dateRange builds the aggregate window: explicit start/end win,
// otherwise the month/year parameters select a calendar month.
func dateRange(r *http.Request) storage.DateRange {
	if start, end := queryDatePtr(r, "start"), queryDatePtr(r, "end"); start != nil || end != nil {
		return storage.DateRange{Start: start, End: end}
	}
	month, year := queryMonthYear(r)
	start, end := core.MonthRange(year, month)
	return storage.DateRange{Start: &start, End: &end}
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.transactions.Summary(r.Context(), dateRange(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTransactionsByCategory(w http.ResponseWriter, r *http.Request) {
	rng := dateRange(r)

	var totals []core.CategoryTotal
	var err error
	switch r.URL.Query().Get("type") {
	case "", string(core.TransactionExpense):
		totals, err = s.transactions.SpendingByCategory(r.Context(), rng)
	case string(core.TransactionIncome):
		totals, err = s.transactions.IncomeByCategory(r.Context(), rng)
	default:
		writeErrorStatus(w, http.StatusBadRequest, "type must be income or expense")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if totals == nil {
		totals = []core.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeErrorStatus(w, http.StatusBadRequest, "missing search term")
		return
	}
	limit := queryInt(r, "limit", 50)

	txs, err := s.transactions.Search(r.Context(), term, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}
