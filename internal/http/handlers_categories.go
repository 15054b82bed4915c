package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	typeFilter := core.CategoryType(r.URL.Query().Get("type"))
	if typeFilter != "" && !typeFilter.Valid() {
		writeErrorStatus(w, http.StatusBadRequest, "invalid category type")
		return
	}
	cats, err := s.categories.List(r.Context(), typeFilter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var draft core.Category
	if !decodeJSON(w, r, &draft) {
		return
	}
	cat, err := s.categories.Create(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cat, err := s.categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var draft core.Category
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.ID = id
	cat, err := s.categories.Update(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.categories.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubcategories(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	subs, err := s.categories.Subcategories(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []core.Category{}
	}
	writeJSON(w, http.StatusOK, subs)
}
