package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the intake and dispatch paths. Match with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrQuotaExceeded  = errors.New("upload quota exceeded")
	ErrNotConnected   = errors.New("platform not connected")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrEnqueueFailed  = errors.New("dispatch enqueue failed")
	ErrNotImplemented = errors.New("integration not implemented")
	ErrAlreadyExists  = errors.New("already exists")
)

// ValidationError describes rejected input
type ValidationError struct {
	Problems []string
}

// NewValidationError creates a ValidationError with the given problems
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// QuotaError carries the human-readable denial produced by the quota gate
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string { return e.Message }

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// kindError carries a user-facing message while matching its sentinel with errors.Is
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NotFoundError names the missing entity
func NotFoundError(entity, id string) error {
	return &kindError{msg: fmt.Sprintf("%s %s not found", entity, id), kind: ErrNotFound}
}

// NotConnectedError is returned when no active OAuth connection exists
func NotConnectedError(p Platform) error {
	return &kindError{
		msg: fmt.Sprintf("%s account not connected. Please connect your %s account first.",
			p.DisplayName(), p.DisplayName()),
		kind: ErrNotConnected,
	}
}

// NotImplementedError is returned by connectors awaiting platform credentials
func NotImplementedError(p Platform) error {
	return &kindError{msg: fmt.Sprintf("%s integration is not yet complete", p.DisplayName()), kind: ErrNotImplemented}
}
