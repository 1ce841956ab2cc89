package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages
var (
	ErrNotInitialized  = errors.New("service not initialized")
	ErrInvalidInput    = errors.New("invalid input")
	ErrStoreClosed     = errors.New("store is closed")
	ErrColumnNotFound  = errors.New("column not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrProcessNotFound = errors.New("process not found")
)

// KeyNotFoundError is returned when a key ID has no entry in the store
type KeyNotFoundError struct {
	KeyID string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("encryption key not found: %s", e.KeyID)
}

// KeyInactiveError is returned when an operation requires an active key
// but the key is rotated or revoked.
type KeyInactiveError struct {
	KeyID  string
	Status KeyStatus
}

func (e *KeyInactiveError) Error() string {
	return fmt.Sprintf("encryption key %s is not active (status: %s)", e.KeyID, e.Status)
}

// IntegrityError is returned when an authentication tag check fails
// during decryption. Table and Column are set when the failure occurs
// inside a column operation.
type IntegrityError struct {
	Table  string
	Column string
	KeyID  string
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("integrity check failed for %s.%s: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("integrity check failed: %s", e.Reason)
}

// ValidationError is returned for malformed inputs: bad blob structure,
// non-hex segments, wrong key sizes, unknown algorithms.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// AuthorizationError is returned when a caller presents a credential
// that does not match the current master key.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed: %s", e.Reason)
}

// AlreadyEnabledError is returned when enabling TDE on a database that
// already has it enabled.
type AlreadyEnabledError struct {
	Database string
}

func (e *AlreadyEnabledError) Error() string {
	return fmt.Sprintf("transparent encryption already enabled for database %s", e.Database)
}

// NotEnabledError is returned when a TDE operation requires encryption
// to be enabled first.
type NotEnabledError struct {
	Database string
}

func (e *NotEnabledError) Error() string {
	return fmt.Sprintf("transparent encryption not enabled for database %s", e.Database)
}

// DetokenizeError is returned when a token has no vault entry
type DetokenizeError struct {
	Token string
}

func (e *DetokenizeError) Error() string {
	return fmt.Sprintf("token not found in vault: %s", e.Token)
}
