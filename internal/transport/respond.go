package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
)

// Error codes of the JSON error envelope.
const (
	codeInvalidInput = "invalid_input"
	codeNotFound     = "not_found"
	codeNotLoaded    = "dataset_not_loaded"
	codeConflict     = "conflict"
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal"
)

// ErrBadRequest indicates a malformed request body or query parameter.
var ErrBadRequest = errors.New("bad request")

// maxBodyBytes bounds request bodies; an ingest batch of a large monorepo
// stays well below it.
const maxBodyBytes = 32 << 20

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// writeDomainError maps a service error to a status code. Unknown errors
// are logged and reported without detail.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, testmethod.ErrInvalidInput),
		errors.Is(err, dashboard.ErrInvalidInput),
		errors.Is(err, view.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, coverage.ErrInvalidAnnotationMode),
		errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, view.ErrViewNotFound),
		errors.Is(err, testmethod.ErrRepositoryNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, dashboard.ErrNotLoaded):
		writeError(w, http.StatusConflict, codeNotLoaded, "dataset not loaded; refresh it first")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", ErrBadRequest)
		}
		return fmt.Errorf("%w: malformed request body: %v", ErrBadRequest, err)
	}
	return nil
}
