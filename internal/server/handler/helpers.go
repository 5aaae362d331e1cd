// Package handler contains the dashboard HTTP handlers. Each handler talks
// to the service layer through a locally declared interface so the package
// does not depend on concrete service implementations.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// writeJSON marshals v and writes it with the given status code. A marshal
// failure falls back to a plain 500 body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts extracts pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	return domain.ListOpts{
		Limit:  queryInt(r, "limit", 50, 500),
		Offset: queryInt(r, "offset", 0, 0),
	}
}

// queryInt reads a non-negative integer query parameter, falling back to def
// and clamping to max when max > 0.
func queryInt(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// queryFloat reads a float query parameter, falling back to def on absence
// or parse failure.
func queryFloat(r *http.Request, name string, def float64) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
