package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeUpstream, "provider unreachable", baseErr)

	assert.Equal(t, ErrorTypeUpstream, domainErr.Type)
	assert.Equal(t, "provider unreachable", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeExhausted,
				Message: "all upstream providers exhausted",
				Err:     errors.New("connection refused"),
			},
			wantMsg: "exhausted: all upstream providers exhausted (connection refused)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
				Err:     nil,
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	unwrapped := errors.Unwrap(domainErr)
	assert.Equal(t, baseErr, unwrapped)
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    NewDomainError(ErrorTypeExhausted, "no candidates left", nil),
			target: ErrUpstreamExhausted,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeValidation, "validation", nil),
			target: ErrUpstreamExhausted,
			want:   false,
		},
		{
			name:   "not a domain error",
			err:    NewDomainError(ErrorTypeExhausted, "no candidates left", nil),
			target: errors.New("regular error"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("provider", "alchemy").WithDetail("field", "endpoint")

	assert.Equal(t, "alchemy", err.Details["provider"])
	assert.Equal(t, "endpoint", err.Details["field"])
}

func TestIsConflictError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate provider", ErrDuplicateProvider, true},
		{"wrapped conflict", fmt.Errorf("wrapped: %w", ErrDuplicateProvider), true},
		{"validation error", ErrInvalidProvider, false},
		{"regular error", errors.New("regular"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConflictError(tt.err))
		})
	}
}

func TestIsTimeoutError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"attempt timeout", ErrAttemptTimeout, true},
		{"call deadline", ErrCallDeadline, true},
		{"exhausted error", ErrUpstreamExhausted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTimeoutError(tt.err))
		})
	}
}

func TestIsExhaustedError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"exhausted error", ErrUpstreamExhausted, true},
		{"wrapped exhausted", fmt.Errorf("wrapped: %w", ErrUpstreamExhausted), true},
		{"timeout error", ErrCallDeadline, false},
		{"no provider error", ErrNoProviderAvailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExhaustedError(tt.err))
		})
	}
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", ErrInvalidProvider, true},
		{"conflict error", ErrDuplicateProvider, false},
		{"regular error", errors.New("regular"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidationError(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"conflict", ErrDuplicateProvider, ErrorTypeConflict},
		{"validation", ErrInvalidProvider, ErrorTypeValidation},
		{"upstream", ErrNoProviderAvailable, ErrorTypeUpstream},
		{"exhausted", ErrUpstreamExhausted, ErrorTypeExhausted},
		{"internal", ErrInternal, ErrorTypeInternal},
		{"regular error", errors.New("regular"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeExhausted, "all upstream providers exhausted", nil)
	err.WithDetail("attempts", 3).WithDetail("request_id", "abc")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, 3, details["attempts"])
	assert.Equal(t, "abc", details["request_id"])

	regularErr := errors.New("regular error")
	assert.Nil(t, GetErrorDetails(regularErr))
}

func TestWrapError(t *testing.T) {
	baseErr := errors.New("base error")
	wrapped := WrapError(ErrorTypeInternal, "wrapped message", baseErr)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeInternal, domainErr.Type)
	assert.Equal(t, "wrapped message", domainErr.Message)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}
