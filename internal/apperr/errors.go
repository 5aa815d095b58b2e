// Package apperr holds the error taxonomy shared by the core and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnauthorized is returned for every authentication or role failure so
// callers cannot tell which resource was refused.
var ErrUnauthorized = errors.New("unauthorized")

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field validation error.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return e.Resource + " not found"
}

func NotFound(resource string) *NotFoundError { return &NotFoundError{Resource: resource} }

type ConflictError struct {
	Resource string
	Msg      string
}

func (e *ConflictError) Error() string {
	if e.Msg == "" {
		return e.Resource + " conflict"
	}
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
}

func Conflict(resource, msg string) *ConflictError {
	return &ConflictError{Resource: resource, Msg: msg}
}

// CollaboratorError wraps a failure of the store, the payment gateway or
// another external dependency. Op names the failed operation.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *CollaboratorError) Unwrap() error { return e.Err }

func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
