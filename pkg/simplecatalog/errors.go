package simplecatalog

import (
	"errors"
	"fmt"
	"strings"
)

// Error types
var (
	// ErrUnauthorized indicates there is no verified identity
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the identity lacks admin privilege
	ErrForbidden = errors.New("admin access required")

	// ErrInvalidInput indicates a validation failure or a missing parameter
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the referenced movie, entry or user is absent
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a uniqueness conflict, such as a duplicate wishlist pair
	ErrAlreadyExists = errors.New("already exists")

	// ErrStorageUnavailable indicates an object store call failed
	ErrStorageUnavailable = errors.New("object storage unavailable")

	// ErrSigningFailed indicates an access URL could not be signed
	ErrSigningFailed = errors.New("failed to generate image URL")
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when request fields fail validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// invalidInput builds a single-field ValidationError.
func invalidInput(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// MovieError represents an error related to movie operations
type MovieError struct {
	MovieID string
	Op      string
	Err     error
}

func (e *MovieError) Error() string {
	return fmt.Sprintf("movie operation %s failed for movie %s: %v", e.Op, e.MovieID, e.Err)
}

func (e *MovieError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to object store operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
