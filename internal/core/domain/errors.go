package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a pharmacy, medicine, user or stock record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for negative quantities, stock underflow and undecodable input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists is returned when registering a key that is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrClosed is returned for operations on a terminated notification channel.
	ErrClosed = errors.New("closed")
)

// DomainError wraps a base error with context.
type DomainError struct {
	Base    error
	Message string
	Field   string
}

func (e *DomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Base.Error(), e.Message, e.Field)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Base.Error(), e.Message)
	}
	return e.Base.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Base
}

func NewNotFoundError(resource, id string) *DomainError {
	return &DomainError{
		Base:    ErrNotFound,
		Message: fmt.Sprintf("%s %q", resource, id),
	}
}

func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Base:    ErrInvalidArgument,
		Message: message,
		Field:   field,
	}
}

func NewAlreadyExistsError(resource, id string) *DomainError {
	return &DomainError{
		Base:    ErrAlreadyExists,
		Message: fmt.Sprintf("%s %q", resource, id),
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
