package mcp

import (
	"errors"
	"fmt"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/dashboard"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/testmethod"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/repository"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, view.ErrViewNotFound):
		return &APIError{Code: "VIEW_NOT_FOUND", Message: "view not found", RecoveryHint: "Call open_view first"}
	case errors.Is(err, dashboard.ErrNotLoaded):
		return &APIError{Code: "DATASET_NOT_LOADED", Message: "dataset not loaded", RecoveryHint: "Call refresh_dataset first"}
	case errors.Is(err, coverage.ErrInvalidAnnotationMode):
		return &APIError{Code: "INVALID_ANNOTATION_MODE", Message: err.Error(), RecoveryHint: "Use all, annotated or not-annotated"}
	case errors.Is(err, testmethod.ErrRepositoryNotFound):
		return &APIError{Code: "REPOSITORY_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, testmethod.ErrInvalidInput),
		errors.Is(err, dashboard.ErrInvalidInput),
		errors.Is(err, view.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}
