package http

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"tally/internal/core"
)

const dashboardCacheKey = "summary"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, found := s.dashboardCache.Get(dashboardCacheKey)
	if !found {
		var err error
		summary, err = s.dashboard.Summary(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.dashboardCache.Set(dashboardCacheKey, summary)
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Queries().ListSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if settings == nil {
		settings = []core.Setting{}
	}
	writeJSON(w, http.StatusOK, settings)
}

type putSettingRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeErrorStatus(w, http.StatusBadRequest, "missing setting key")
		return
	}
	var req putSettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.store.Queries().SetSetting(r.Context(), key, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.Setting{Key: key, Value: req.Value})
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := s.backup.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="tally-backup.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(r.Context(), "Failed to stream backup", "component", "http", "error", err)
	}
}

// Backups replace live data, so the payload size is capped to keep a
// bad upload from exhausting memory.
const maxBackupBytes = 32 << 20

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBackupBytes+1))
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	if len(data) > maxBackupBytes {
		writeErrorStatus(w, http.StatusRequestEntityTooLarge, "backup too large")
		return
	}
	if err := s.backup.Import(r.Context(), data); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDerived()
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
