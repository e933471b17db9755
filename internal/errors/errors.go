// Package errors provides shared error types for the tool server, its tools and clients.
package errors

import (
	"errors"
	"fmt"
)

// ToolNotFoundError indicates a call named a tool that is not registered.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Tool '%s' not found", e.Tool)
}

// NewToolNotFoundError creates a ToolNotFoundError.
func NewToolNotFoundError(tool string) *ToolNotFoundError {
	return &ToolNotFoundError{Tool: tool}
}

// NotFoundError indicates a lookup target does not exist upstream.
type NotFoundError struct {
	Kind       string // "location", "sender"
	Identifier string
}

func (e *NotFoundError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s not found: %s", e.Kind, e.Identifier)
	}
	return fmt.Sprintf("not found: %s", e.Identifier)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, identifier string) *NotFoundError {
	return &NotFoundError{Kind: kind, Identifier: identifier}
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value (may be empty)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// UpstreamError wraps a non-success response from an upstream API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(service string, statusCode int, body string) *UpstreamError {
	return &UpstreamError{Service: service, StatusCode: statusCode, Body: body}
}

// IsToolNotFound reports whether err is or wraps a ToolNotFoundError.
func IsToolNotFound(err error) bool {
	var target *ToolNotFoundError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUpstream reports whether err is or wraps an UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}
