// Package api exposes the tracker's HTTP handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/statistics"
)

// Trigger runs a monthly pipeline on demand over the current previous-month window.
type Trigger interface {
	RunStatistics(ctx context.Context) (domain.RunResult, error)
	RunReports(ctx context.Context) (domain.RunResult, error)
}

// Handler routes HTTP requests to the domain services.
type Handler struct {
	users      *domain.UserService
	trainings  *domain.TrainingService
	statistics *statistics.Service
	trigger    Trigger
}

// NewHandler builds a Handler.
func NewHandler(users *domain.UserService, trainings *domain.TrainingService, stats *statistics.Service, trigger Trigger) *Handler {
	return &Handler{users: users, trainings: trainings, statistics: stats, trigger: trigger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/users", h.usersCollection)
	mux.HandleFunc("/v1/users/", h.userByID)
	mux.HandleFunc("/v1/trainings", h.trainingsCollection)
	mux.HandleFunc("/v1/trainings/", h.trainingByID)
	mux.HandleFunc("/v1/statistics", h.listStatistics)
	mux.HandleFunc("/v1/statistics/", h.statisticsByPath)
	mux.HandleFunc("/v1/reports/generate", h.generateReports)
	mux.HandleFunc("/healthz", healthz)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize writes 401/403 and returns false unless the caller holds one of scopes.
func authorize(w http.ResponseWriter, r *http.Request, scopes ...string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasAnyScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return false
	}
	return true
}

func canRead(w http.ResponseWriter, r *http.Request) bool {
	return authorize(w, r, auth.ScopeFitnessRead, auth.ScopeFitnessWrite)
}

func canWrite(w http.ResponseWriter, r *http.Request) bool {
	return authorize(w, r, auth.ScopeFitnessWrite)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// pathID returns the single path segment after prefix, or "" when absent or nested.
func pathID(r *http.Request, prefix string) string {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
