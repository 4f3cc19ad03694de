package iam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codewandler/iam-go/core/es"
)

// Error families. Concrete errors wrap exactly one of these.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrStaleUpdate        = errors.New("update was prepared against another version")

	// ErrNotFound is returned when a referenced aggregate has no stream.
	ErrNotFound = es.ErrAggregateNotFound
)

// AggregatesNotFoundError names the missing ids of one aggregate type.
type AggregatesNotFoundError = es.NotFoundError

var (
	ErrIncorrectUserPassword            = fmt.Errorf("%w: incorrect user password", ErrInvalidCredentials)
	ErrUserHasNoPassword                = fmt.Errorf("%w: user has no password", ErrInvalidCredentials)
	ErrUserIsDisabled                   = fmt.Errorf("%w: user is disabled", ErrInvalidCredentials)
	ErrUserIsNotConfirmed               = fmt.Errorf("%w: user is not confirmed", ErrInvalidCredentials)
	ErrSessionIsNotActive               = fmt.Errorf("%w: session is not active", ErrInvalidCredentials)
	ErrSessionIsNotPersistent           = fmt.Errorf("%w: session is not persistent", ErrInvalidCredentials)
	ErrIncorrectSessionSecret           = fmt.Errorf("%w: incorrect session secret", ErrInvalidCredentials)
	ErrApiKeyIsExpired                  = fmt.Errorf("%w: api key is expired", ErrInvalidCredentials)
	ErrIncorrectApiKeySecret            = fmt.Errorf("%w: incorrect api key secret", ErrInvalidCredentials)
	ErrOneTimePasswordAlreadyUsed       = fmt.Errorf("%w: one-time password already used", ErrInvalidCredentials)
	ErrOneTimePasswordIsExpired         = fmt.Errorf("%w: one-time password is expired", ErrInvalidCredentials)
	ErrMaximumAttemptsReached           = fmt.Errorf("%w: maximum attempts reached", ErrInvalidCredentials)
	ErrIncorrectOneTimePasswordPassword = fmt.Errorf("%w: incorrect one-time password", ErrInvalidCredentials)
)

// ValidationFailure is one rejected property.
type ValidationFailure struct {
	Property string
	Code     string
	Message  string
}

// ValidationError reports malformed input for value objects and aggregates.
type ValidationError struct {
	Failures []ValidationFailure
}

func NewValidationError(property, code, message string) *ValidationError {
	return &ValidationError{Failures: []ValidationFailure{{Property: property, Code: code, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", f.Property, f.Message, f.Code))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Has reports whether property failed with code.
func (e *ValidationError) Has(property, code string) bool {
	for _, f := range e.Failures {
		if f.Property == property && f.Code == code {
			return true
		}
	}
	return false
}

// UniqueNameAlreadyUsedError is returned when another aggregate of AggType
// already carries the unique name in the tenant.
type UniqueNameAlreadyUsedError struct {
	AggType    string
	TenantID   TenantID
	UniqueName string
	ConflictID string
}

func (e *UniqueNameAlreadyUsedError) Error() string {
	return fmt.Sprintf("%s: %s unique name %q is already used by %s", ErrConflict, e.AggType, e.UniqueName, e.ConflictID)
}
func (e *UniqueNameAlreadyUsedError) Unwrap() error { return ErrConflict }

type CustomIdentifierAlreadyUsedError struct {
	AggType    string
	TenantID   TenantID
	Key        string
	Value      string
	ConflictID string
}

func (e *CustomIdentifierAlreadyUsedError) Error() string {
	return fmt.Sprintf("%s: %s identifier %s=%q is already used by %s", ErrConflict, e.AggType, e.Key, e.Value, e.ConflictID)
}
func (e *CustomIdentifierAlreadyUsedError) Unwrap() error { return ErrConflict }

type EmailAddressAlreadyUsedError struct {
	TenantID     TenantID
	EmailAddress string
	ConflictIDs  []string
}

func (e *EmailAddressAlreadyUsedError) Error() string {
	return fmt.Sprintf("%s: email address %q is already used by %s", ErrConflict, e.EmailAddress, strings.Join(e.ConflictIDs, ", "))
}
func (e *EmailAddressAlreadyUsedError) Unwrap() error { return ErrConflict }

// TenantMismatchError is returned when two associated entities live in different tenants.
type TenantMismatchError struct {
	Expected TenantID
	Actual   TenantID
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("%s: expected tenant %q, got %q", ErrConflict, e.Expected, e.Actual)
}
func (e *TenantMismatchError) Unwrap() error { return ErrConflict }

// EnsureSameTenant fails with a *TenantMismatchError when the tenants differ.
func EnsureSameTenant(expected, actual TenantID) error {
	if expected != actual {
		return &TenantMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
