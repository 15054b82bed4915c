package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/storage"
)

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debtType := core.LendBorrowType(r.URL.Query().Get("type"))
	if debtType != "" && !debtType.Valid() {
		writeErrorStatus(w, http.StatusBadRequest, "invalid lend/borrow type")
		return
	}
	status := core.LendBorrowStatus(r.URL.Query().Get("status"))

	debts, err := s.debts.List(r.Context(), storage.LendBorrowFilter{Type: debtType, Status: status})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if debts == nil {
		debts = []core.LendBorrow{}
	}
	writeJSON(w, http.StatusOK, debts)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var draft core.LendBorrow
	if !decodeJSON(w, r, &draft) {
		return
	}
	lb, err := s.debts.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, lb)
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lb, err := s.debts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var draft core.LendBorrow
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.ID = id
	lb, err := s.debts.Update(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, lb)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.debts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payments, err := s.debts.Payments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payments == nil {
		payments = []core.LendBorrowPayment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

// paymentResponse returns both the new payment and the recomputed
// parent so clients see the updated remaining amount in one round trip.
type paymentResponse struct {
	Payment    core.LendBorrowPayment `json:"payment"`
	LendBorrow core.LendBorrow        `json:"lend_borrow"`
}

// addPaymentRequest takes the repayment amount as integer cents or as a
// decimal string, like createTransactionRequest.
type addPaymentRequest struct {
	core.LendBorrowPayment
	Amount string `json:"amount,omitempty"`
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req addPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft := req.LendBorrowPayment
	if req.Amount != "" {
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		draft.AmountCents = cents
	}
	payment, lb, err := s.debts.AddPayment(r.Context(), id, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, paymentResponse{Payment: payment, LendBorrow: lb})
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lb, err := s.debts.DeletePayment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, lb)
}

func (s *Server) handleDebtSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.debts.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleOverdueDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.debts.Overdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if debts == nil {
		debts = []core.LendBorrow{}
	}
	writeJSON(w, http.StatusOK, debts)
}
