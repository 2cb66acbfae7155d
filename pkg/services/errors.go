// Package services implements the conversation orchestration layer and the
// standardized error taxonomy for API responses.
package services

import (
	"errors"
	"fmt"

	"github.com/parley-hq/parley/pkg/handlers"
	"github.com/parley-hq/parley/pkg/models"
	"github.com/parley-hq/parley/pkg/session"
	"github.com/parley-hq/parley/pkg/workflow"
)

// Stable error codes the UI can branch on without string matching.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeWorkflowNotFound      = "WORKFLOW_NOT_FOUND"
	CodeWorkflowStepInvalid   = "WORKFLOW_STEP_INVALID"
	CodeBusinessRuleViolation = "BUSINESS_RULE_VIOLATION"
	CodeMeetingTypeLocked     = "MEETING_TYPE_LOCKED"
	CodeUpstreamUnavailable   = "UPSTREAM_UNAVAILABLE"
	CodeInternal              = "INTERNAL_ERROR"
)

var (
	// ErrWorkflowNotFound is returned when the conversation is unknown.
	ErrWorkflowNotFound = session.ErrSessionNotFound

	// ErrWorkflowExists is returned when starting a conversation that is
	// already in progress.
	ErrWorkflowExists = session.ErrSessionExists

	// ErrUpstreamUnavailable is returned when an external collaborator
	// keeps failing after retries.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// ServiceError wraps service-level errors with the code the API surfaces.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, handlers.ErrMalformedPayload) ||
		errors.Is(err, handlers.ErrUnknownAction) ||
		errors.Is(err, handlers.ErrBlockMismatch) ||
		errors.Is(err, workflow.ErrUnknownStep)
}

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, models.ErrMeetingTypeLocked) ||
		errors.Is(err, models.ErrStatusRegression) ||
		errors.Is(err, ErrWorkflowExists)
}

// IsUpstreamError checks if an error should map to HTTP 502.
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// CodeFor maps an error to its stable response code.
func CodeFor(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		return serviceErr.Code
	}

	switch {
	case errors.Is(err, models.ErrMeetingTypeLocked):
		return CodeMeetingTypeLocked
	case errors.Is(err, ErrWorkflowNotFound):
		return CodeWorkflowNotFound
	case errors.Is(err, workflow.ErrTransitionBlocked):
		return CodeWorkflowStepInvalid
	case errors.Is(err, workflow.ErrUnknownStep):
		return CodeWorkflowStepInvalid
	case errors.Is(err, models.ErrStatusRegression), errors.Is(err, ErrWorkflowExists):
		return CodeBusinessRuleViolation
	case errors.Is(err, ErrUpstreamUnavailable):
		return CodeUpstreamUnavailable
	case IsValidationError(err):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// NewServiceError creates an error with operation and code context.
func NewServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
