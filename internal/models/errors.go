package models

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountSuspended    = errors.New("account suspended")
	ErrControllerClosed    = errors.New("controller closed")
	ErrUnsupportedResource = errors.New("unsupported resource")
)

type AuthErrorKind string

const (
	AuthMissing AuthErrorKind = "missing"
	AuthInvalid AuthErrorKind = "invalid"
	AuthExpired AuthErrorKind = "expired"
)

// AuthError is returned by token verification.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

var (
	ErrTokenMissing = &AuthError{Kind: AuthMissing}
	ErrTokenInvalid = &AuthError{Kind: AuthInvalid}
	ErrTokenExpired = &AuthError{Kind: AuthExpired}
)

func NewAuthError(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth %s", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

type PolicyErrorKind string

const (
	PolicyDenied        PolicyErrorKind = "denied"
	PolicyQuotaExceeded PolicyErrorKind = "quota_exceeded"
)

// PolicyError means the entitlement policy refused an operation before any
// store write was issued.
type PolicyError struct {
	Kind      PolicyErrorKind
	Resource  ResourceType
	Operation Operation
	Reason    string
}

var (
	ErrDenied        = &PolicyError{Kind: PolicyDenied}
	ErrQuotaExceeded = &PolicyError{Kind: PolicyQuotaExceeded}
)

func Denied(resource ResourceType, op Operation, reason string) *PolicyError {
	return &PolicyError{Kind: PolicyDenied, Resource: resource, Operation: op, Reason: reason}
}

func QuotaExceeded(resource ResourceType, reason string) *PolicyError {
	return &PolicyError{Kind: PolicyQuotaExceeded, Resource: resource, Operation: OpCreate, Reason: reason}
}

func (e *PolicyError) Error() string {
	msg := fmt.Sprintf("policy %s: %s %s", e.Kind, e.Operation, e.Resource)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *PolicyError) Is(target error) bool {
	t, ok := target.(*PolicyError)
	return ok && t.Kind == e.Kind
}

type StoreErrorKind string

const (
	StoreNetwork    StoreErrorKind = "network"
	StorePermission StoreErrorKind = "permission"
	StoreNotFound   StoreErrorKind = "not_found"
	StoreUnknown    StoreErrorKind = "unknown"
)

// StoreError is returned by resource store adapters. Adapters never retry.
type StoreError struct {
	Kind       StoreErrorKind
	Collection string
	Err        error
}

var (
	ErrStoreNetwork    = &StoreError{Kind: StoreNetwork}
	ErrStorePermission = &StoreError{Kind: StorePermission}
	ErrNotFound        = &StoreError{Kind: StoreNotFound}
	ErrStoreUnknown    = &StoreError{Kind: StoreUnknown}
)

func NewStoreError(kind StoreErrorKind, collection string, err error) *StoreError {
	return &StoreError{Kind: kind, Collection: collection, Err: err}
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store %s", e.Kind)
	if e.Collection != "" {
		msg += " (" + e.Collection + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	return ok && t.Kind == e.Kind
}

type ValidationErrorKind string

const MalformedInput ValidationErrorKind = "malformed_input"

// ValidationError blocks a single save action and leaves prior state intact.
type ValidationError struct {
	Kind  ValidationErrorKind
	Field string
	Err   error
}

var ErrMalformedInput = &ValidationError{Kind: MalformedInput}

func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Kind: MalformedInput, Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed input: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}
