package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestToolNotFoundError_Error(t *testing.T) {
	err := NewToolNotFoundError("getForecast")
	if got, want := err.Error(), "Tool 'getForecast' not found"; got != want {
		t.Errorf("ToolNotFoundError.Error() = %q, want %q", got, want)
	}
}

func TestNotFoundError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		expected string
	}{
		{
			name:     "with kind",
			err:      &NotFoundError{Kind: "location", Identifier: "Atlantis"},
			expected: "location not found: Atlantis",
		},
		{
			name:     "without kind",
			err:      &NotFoundError{Identifier: "Atlantis"},
			expected: "not found: Atlantis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("NotFoundError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name: "with field and value",
			err: &ValidationError{
				Field:   "location",
				Value:   "  ",
				Message: "must not be blank",
			},
			expected: "validation failed for location=\"  \": must not be blank",
		},
		{
			name: "with field only",
			err: &ValidationError{
				Field:   "sender",
				Message: "is required",
			},
			expected: "validation failed for sender: is required",
		},
		{
			name: "message only",
			err: &ValidationError{
				Message: "invalid input",
			},
			expected: "validation failed: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("message", "", "is required")

	if err.Field != "message" {
		t.Errorf("Field = %q, want %q", err.Field, "message")
	}
	if err.Value != "" {
		t.Errorf("Value = %q, want empty", err.Value)
	}
	if err.Message != "is required" {
		t.Errorf("Message = %q, want %q", err.Message, "is required")
	}
}

func TestUpstreamError_Error(t *testing.T) {
	withBody := NewUpstreamError("open-meteo", 502, "bad gateway")
	if got, want := withBody.Error(), "open-meteo returned status 502: bad gateway"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noBody := NewUpstreamError("open-meteo", 404, "")
	if got, want := noBody.Error(), "open-meteo returned status 404"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPredicates(t *testing.T) {
	notFound := NewNotFoundError("location", "Atlantis")
	validation := NewValidationError("location", "", "is required")
	toolMissing := NewToolNotFoundError("nope")
	upstream := NewUpstreamError("openai", 500, "")
	plain := errors.New("plain error")

	tests := []struct {
		name string
		fn   func(error) bool
		yes  []error
		no   []error
	}{
		{"IsNotFound", IsNotFound, []error{notFound, fmt.Errorf("wrapped: %w", notFound)}, []error{validation, plain, nil}},
		{"IsValidation", IsValidation, []error{validation, fmt.Errorf("wrapped: %w", validation)}, []error{notFound, plain, nil}},
		{"IsToolNotFound", IsToolNotFound, []error{toolMissing}, []error{notFound, plain, nil}},
		{"IsUpstream", IsUpstream, []error{upstream, fmt.Errorf("chat: %w", upstream)}, []error{validation, plain, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, err := range tt.yes {
				if !tt.fn(err) {
					t.Errorf("%s(%v) = false, want true", tt.name, err)
				}
			}
			for _, err := range tt.no {
				if tt.fn(err) {
					t.Errorf("%s(%v) = true, want false", tt.name, err)
				}
			}
		})
	}
}
