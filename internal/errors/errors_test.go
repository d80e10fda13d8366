package errors_test

import (
	"errors"
	"testing"

	apperr "vidbee/internal/errors"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *apperr.AppError
		expected string
	}{
		{
			name:     "with message",
			err:      apperr.NewWithMessage("TestOp", apperr.ErrInvalidURL, "not a valid URL"),
			expected: "TestOp: not a valid URL",
		},
		{
			name:     "without message",
			err:      apperr.New("TestOp", apperr.ErrNotFound),
			expected: "TestOp: resource not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := apperr.ErrNotFound
	wrappedErr := apperr.New("TestOp", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap() should allow errors.Is to find the original error")
	}
}

func TestWrap_NilError(t *testing.T) {
	result := apperr.Wrap("TestOp", nil)
	if result != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{"IsNotFound positive", apperr.ErrNotFound, apperr.IsNotFound, true},
		{"IsNotFound negative", apperr.ErrTimeout, apperr.IsNotFound, false},
		{"IsCancelled positive", apperr.ErrCancelled, apperr.IsCancelled, true},
		{"IsCancelled negative", apperr.ErrTimeout, apperr.IsCancelled, false},
		{"IsTimeout positive", apperr.ErrTimeout, apperr.IsTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checkFn(tt.err); got != tt.expected {
				t.Errorf("check(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestWrappedErrorPreservesIs(t *testing.T) {
	original := apperr.ErrCancelled
	wrapped1 := apperr.Wrap("Layer1", original)
	wrapped2 := apperr.Wrap("Layer2", wrapped1)

	if !errors.Is(wrapped2, original) {
		t.Error("Deeply wrapped error should still match with errors.Is")
	}
}

func TestExtractorError_Error(t *testing.T) {
	err := &apperr.ExtractorError{Stderr: "unsupported URL", ExitCode: 1}
	want := "extractor exited 1: unsupported URL"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTokenError_Error(t *testing.T) {
	err := &apperr.TokenError{Kind: apperr.TokenExpired}
	if err.Error() == "" {
		t.Error("TokenError.Error() should not be empty")
	}
}

func TestPersistenceError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &apperr.PersistenceError{Op: "upsert", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("PersistenceError should unwrap to its cause")
	}
}
