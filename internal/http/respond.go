package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "component", "http", "error", err)
	}
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps the service error taxonomy onto HTTP status codes:
// missing ids are 404, state conflicts 409, relation violations 422,
// bad input 400, everything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidState):
		writeErrorStatus(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrConstraint):
		writeErrorStatus(w, http.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"component", "http",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, v := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyName,
		core.ErrInvalidWalletType,
		core.ErrInvalidCategoryType,
		core.ErrInvalidTxType,
		core.ErrInvalidDebtType,
		core.ErrInvalidPeriod,
		core.ErrInvalidMonth,
		core.ErrZeroDate,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// decodeJSON parses the request body into v, rejecting unknown fields
// so typos fail loudly instead of silently dropping data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathID extracts the {id} path value as an int64.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorStatus(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryInt64Ptr parses an optional int64 query parameter, nil if absent.
func queryInt64Ptr(r *http.Request, key string) *int64 {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// queryDatePtr parses an optional YYYY-MM-DD query parameter, nil if
// absent or malformed.
func queryDatePtr(r *http.Request, key string) *time.Time {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// queryMonthYear parses month/year parameters, defaulting to the
// current UTC calendar month.
func queryMonthYear(r *http.Request) (int, int) {
	now := time.Now().UTC()
	month := queryInt(r, "month", int(now.Month()))
	year := queryInt(r, "year", now.Year())
	return month, year
}
