package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for presentation. Callers decide how to surface it.
type Kind string

const (
	KindInternal          Kind = "internal"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindUnavailable       Kind = "unavailable"
	KindUnauthorized      Kind = "unauthorized"
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is matches on entity only so sentinels like ErrCampaignNotFound work with errors.Is.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return t.Entity == "" || e.Entity == t.Entity
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ConflictError represents a write that collides with existing state.
type ConflictError struct {
	Entity  string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s conflict: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("%s conflict", e.Entity)
}

// InvalidTransitionError is returned by state machines rejecting a move.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Entity, e.From, e.To)
}

// UnavailableError wraps failures of an upstream dependency.
type UnavailableError struct {
	Service string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Service)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// AuthenticationError represents authentication-related errors
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// Entity Not Found Errors
var (
	ErrOrganizationNotFound = &NotFoundError{Entity: "organization"}
	ErrProfileNotFound      = &NotFoundError{Entity: "profile"}
	ErrCampaignNotFound     = &NotFoundError{Entity: "campaign"}
	ErrAgentNotFound        = &NotFoundError{Entity: "agent"}
	ErrPhoneNumberNotFound  = &NotFoundError{Entity: "phone number"}
	ErrContactListNotFound  = &NotFoundError{Entity: "contact list"}
	ErrQueueItemNotFound    = &NotFoundError{Entity: "call queue item"}
	ErrCallNotFound         = &NotFoundError{Entity: "call"}
	ErrChatSessionNotFound  = &NotFoundError{Entity: "chat session"}
	ErrNotificationNotFound = &NotFoundError{Entity: "notification"}
)

// Helper Functions

func NotFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

func Validation(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

func Conflict(entity, msg string) error { return &ConflictError{Entity: entity, Message: msg} }

func InvalidTransition(entity, from, to string) error {
	return &InvalidTransitionError{Entity: entity, From: from, To: to}
}

func Unavailable(service string, err error) error { return &UnavailableError{Service: service, Err: err} }

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsInvalidTransition(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}

func IsUnavailable(err error) bool {
	var e *UnavailableError
	return errors.As(err, &e)
}

func IsUnauthorized(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

// KindOf reports the classification of err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return KindNotFound
	case IsValidation(err):
		return KindValidation
	case IsConflict(err):
		return KindConflict
	case IsInvalidTransition(err):
		return KindInvalidTransition
	case IsUnavailable(err):
		return KindUnavailable
	case IsUnauthorized(err):
		return KindUnauthorized
	default:
		return KindInternal
	}
}
