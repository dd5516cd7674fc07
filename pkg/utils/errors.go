package utils

import (
	"errors"
	"fmt"
)

var (
	// Lookup failures
	ErrPlayerNotFound     = errors.New("player not found")
	ErrProjectionNotFound = errors.New("projection not found")
	ErrScenarioNotFound   = errors.New("scenario not found")
	ErrOverrideNotFound   = errors.New("override not found")
	ErrTeamStatNotFound   = errors.New("team stats not found")
	ErrTemplateNotFound   = errors.New("rookie template not found")

	// Bad input
	ErrInvalidInput          = errors.New("invalid input")
	ErrStatNameInvalid       = errors.New("stat name not valid for position")
	ErrAdjustmentOutOfRange  = errors.New("adjustment factor out of range")
	ErrConfidenceUnsupported = errors.New("unsupported confidence level")

	// Preconditions
	ErrNotEnoughHistory       = errors.New("not enough historical seasons")
	ErrTeamContextMissing     = errors.New("team stats missing for target season")
	ErrRookieRequiresTemplate = errors.New("rookie projection requires draft data")
	ErrPositionMismatch       = errors.New("player position not projectable")
	ErrRookieBaseline         = errors.New("baseline builder does not project rookies")

	// Conflicts
	ErrProjectionConflict = errors.New("projection was modified concurrently")
	ErrScenarioNameTaken  = errors.New("scenario name already exists")

	// Invariant violations during derivation
	ErrRecomputeFault = errors.New("derived rate outside valid bounds")
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeConflict     = "CONFLICT"
	ErrCodePrecondition = "PRECONDITION_FAILED"
	ErrCodeRateLimited  = "RATE_LIMITED"
)
