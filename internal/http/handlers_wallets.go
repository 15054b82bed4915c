package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	wallets, err := s.wallets.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wallets == nil {
		wallets = []core.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var draft core.Wallet
	if !decodeJSON(w, r, &draft) {
		return
	}
	wallet, err := s.wallets.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusCreated, wallet)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wallet, err := s.wallets.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var draft core.Wallet
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.ID = id
	wallet, err := s.wallets.Update(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.wallets.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeactivateWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.wallets.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWalletCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	info, err := s.wallets.CreditInfo(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleWalletTotals(w http.ResponseWriter, r *http.Request) {
	balance, err := s.wallets.TotalBalance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	debt, err := s.wallets.TotalCreditCardDebt(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"total_balance_cents":    balance,
		"credit_card_debt_cents": debt,
	})
}
