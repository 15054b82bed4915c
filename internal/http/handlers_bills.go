package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	unpaidOnly := r.URL.Query().Get("unpaid") == "true"
	bills, err := s.bills.List(r.Context(), unpaidOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bills == nil {
		bills = []core.BillReminder{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var draft core.BillReminder
	if !decodeJSON(w, r, &draft) {
		return
	}
	bill, err := s.bills.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bill, err := s.bills.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var draft core.BillReminder
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.ID = id
	bill, err := s.bills.Update(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.bills.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

type payBillRequest struct {
	TransactionID *int64 `json:"transaction_id"`
}

// payBillResponse carries the paid bill and, for recurring bills,
// the reminder generated for the next cycle.
type payBillResponse struct {
	Paid core.BillReminder  `json:"paid"`
	Next *core.BillReminder `json:"next,omitempty"`
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req payBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	paid, next, err := s.bills.MarkAsPaid(r.Context(), id, req.TransactionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, payBillResponse{Paid: paid, Next: next})
}

type snoozeBillRequest struct {
	Days int `json:"days"`
}

func (s *Server) handleSnoozeBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req snoozeBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.bills.Snooze(r.Context(), id, req.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleUpcomingBills(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	bills, err := s.bills.Upcoming(r.Context(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bills == nil {
		bills = []core.BillReminder{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleOverdueBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.Overdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bills == nil {
		bills = []core.BillReminder{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleBillsDueToday(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.DueToday(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bills == nil {
		bills = []core.BillReminder{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleBillReminders(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.CheckDue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bills == nil {
		bills = []core.BillReminder{}
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleBillSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.bills.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
