// Package handler implements the HTTP endpoints of the tracker API.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	mw "github.com/kiranshivaraju/jobtracker/internal/api/middleware"
	"github.com/kiranshivaraju/jobtracker/internal/api/response"
	"github.com/kiranshivaraju/jobtracker/internal/store"
)

const maxBodyBytes = 1 << 20

// userID fetches the authenticated user or writes a 401.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
	}
	return id, ok
}

// decode reads a JSON body into v or writes a 400.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

func invalid(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}

// storeError maps store errors onto API errors. notFound names the missing resource.
func storeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", notFound+" not found", nil)
	case errors.Is(err, store.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Job does not belong to caller", nil)
	case errors.Is(err, store.ErrInvalidReorder):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "CONFLICT", "Sort order already taken", nil)
	default:
		slog.Error("store operation failed", "error", err, "method", r.Method, "path", r.URL.Path)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
