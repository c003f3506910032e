// internal/types_test.go - Unit tests for the error taxonomy
package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error", NewError(ErrorCodeLoad, "insert failed", nil), ErrorCodeLoad},
		{"wrapped app error", fmt.Errorf("tile 3/1/2: %w", NewError(ErrorCodeDecode, "bad json", nil)), ErrorCodeDecode},
		{"canceled", context.Canceled, ErrorCodeCanceled},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), ErrorCodeCanceled},
		{"plain", errors.New("boom"), ErrorCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusCodeOf(t *testing.T) {
	err := fmt.Errorf("fetch: %w", NewStatusError(500, "HTTP 500"))
	if got := StatusCodeOf(err); got != 500 {
		t.Errorf("Expected status 500, got %d", got)
	}
	if got := StatusCodeOf(errors.New("x")); got != 0 {
		t.Errorf("Expected status 0, got %d", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrorCodeFetch, "request failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
	if err.Error() != "request failed: connection refused" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
