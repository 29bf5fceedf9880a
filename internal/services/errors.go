package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/wordpath/learning-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Curriculum errors
	ErrRoundNotFound = errors.New("round not found")
	ErrUnitNotFound  = errors.New("unit not found")
	ErrTestNotFound  = errors.New("online test not found")

	// Round test session errors
	ErrSessionNotFound      = errors.New("test session not found")
	ErrSessionFinished      = errors.New("test session already finished")
	ErrSessionNotInWriting  = errors.New("session is not in the written stage")
	ErrSessionNotInChoosing = errors.New("session is not in the choice stage")

	// Online test errors
	ErrResultNotFound       = errors.New("online test result not found")
	ErrTestAlreadySubmitted = errors.New("online test already submitted")
	ErrTestSessionActive    = errors.New("an online test session is already active")
	ErrTestNotSubmitted     = errors.New("online test has not been submitted")

	// Grading errors
	ErrGradeOutOfRange   = errors.New("grade must be between 2 and 5")
	ErrIncompleteGrading = errors.New("every answer needs a correctness flag")
	ErrAlreadyGraded     = errors.New("result already graded")

	// Persistence errors
	ErrProgressNotSaved = errors.New("progress could not be saved")

	// User/Permission errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid user role")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	ActorID  string `json:"actor_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s - %s",
		pe.ActorID, pe.Action, pe.Resource, pe.Reason)
}

func NewPermissionError(actorID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		ActorID:  actorID,
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

// TransientIOError marks a storage round-trip failure that is safe to retry.
type TransientIOError struct {
	Op  string
	Err error
}

func (te *TransientIOError) Error() string {
	return fmt.Sprintf("transient storage failure during %s: %v", te.Op, te.Err)
}

func (te *TransientIOError) Unwrap() error {
	return te.Err
}

func NewTransientIOError(op string, err error) *TransientIOError {
	return &TransientIOError{Op: op, Err: err}
}

// ===== ERROR HELPERS =====

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRoundNotFound) ||
		errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

func IsValidation(err error) bool {
	var ve ValidationErrors
	var single *ValidationError
	var tagErrs validator.ValidationErrors
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrGradeOutOfRange) ||
		errors.Is(err, ErrIncompleteGrading) ||
		errors.As(err, &ve) ||
		errors.As(err, &single) ||
		errors.As(err, &tagErrs)
}

func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.Is(err, ErrForbidden) || errors.As(err, &pe)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTestAlreadySubmitted) ||
		errors.Is(err, ErrAlreadyGraded)
}

func IsTransient(err error) bool {
	var te *TransientIOError
	return errors.As(err, &te)
}
