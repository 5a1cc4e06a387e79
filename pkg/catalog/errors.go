package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a row does not exist or is inactive.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by repositories when a write violates a uniqueness
// constraint, such as a concurrent insert of the same product code.
var ErrDuplicate = errors.New("duplicate")

// NotFoundError names the missing resource. errors.Is(err, ErrNotFound) holds.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string { return e.Message }

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError is returned when input fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError is returned when an operation collides with existing data.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func filterNotFound() error {
	return &NotFoundError{Resource: "filtro", Message: "Filtro no encontrado"}
}

func categoryNotFound() error {
	return &NotFoundError{Resource: "categoria", Message: "Categoría no encontrada"}
}

func distributorNotFound() error {
	return &NotFoundError{Resource: "distribuidor", Message: "Distribuidor no encontrado"}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
