package integrity

import (
	"errors"
	"fmt"

	"github.com/roach88/firmkeeper/internal/model"
)

// EngineError represents an error detected by the integrity engine.
//
// EngineError includes structured fields for diagnostics and recovery.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// EntityType and EntityID identify the affected entity, when known.
	EntityType model.EntityType
	EntityID   string

	// Err is the underlying cause, if any.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeMalformedIssue indicates an issue handed to repair violates
	// the issue invariants.
	ErrCodeMalformedIssue EngineErrorCode = "MALFORMED_ISSUE"

	// ErrCodeInvalidEntity indicates an entity without type, id or tenant.
	ErrCodeInvalidEntity EngineErrorCode = "INVALID_ENTITY"

	// ErrCodeEntityNotFound indicates a repair target no longer exists.
	ErrCodeEntityNotFound EngineErrorCode = "ENTITY_NOT_FOUND"

	// ErrCodeNoRepository indicates no repository is configured for a type.
	ErrCodeNoRepository EngineErrorCode = "NO_REPOSITORY"

	// ErrCodeInvalidRepair indicates a repair command the dispatcher
	// cannot apply to the current entity state.
	ErrCodeInvalidRepair EngineErrorCode = "INVALID_REPAIR"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.EntityID != "" {
		msg = fmt.Sprintf("%s (%s)", msg, model.Key(e.EntityType, e.EntityID))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code EngineErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsMalformedIssue returns true if err reports a malformed issue.
// Uses errors.As to handle wrapped errors.
func IsMalformedIssue(err error) bool {
	return hasCode(err, ErrCodeMalformedIssue) || errors.Is(err, model.ErrMalformedIssue)
}

// IsEntityNotFound returns true if err reports a missing repair target.
func IsEntityNotFound(err error) bool {
	return hasCode(err, ErrCodeEntityNotFound)
}

func newNotFoundError(t model.EntityType, id string) *EngineError {
	return &EngineError{
		Code:       ErrCodeEntityNotFound,
		Message:    "entity no longer exists",
		EntityType: t,
		EntityID:   id,
	}
}

func newNoRepositoryError(t model.EntityType) *EngineError {
	return &EngineError{
		Code:       ErrCodeNoRepository,
		Message:    fmt.Sprintf("no repository configured for %s", t),
		EntityType: t,
	}
}
