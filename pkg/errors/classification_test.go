package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{"nil error", nil, CategoryFatal},
		{"context canceled", context.Canceled, CategoryFatal},
		{"context deadline exceeded", context.DeadlineExceeded, CategoryRetriable},
		{"EOF", io.EOF, CategoryRetriable},
		{"unexpected EOF", io.ErrUnexpectedEOF, CategoryRetriable},
		{"connection refused", syscall.ECONNREFUSED, CategoryRetriable},
		{"connection reset", syscall.ECONNRESET, CategoryRetriable},
		{"EAGAIN", syscall.EAGAIN, CategoryTransient},
		{"invalid argument", syscall.EINVAL, CategoryFatal},
		{"permission denied", syscall.EACCES, CategoryFatal},
		{"wrapped errno", fmt.Errorf("write batch: %w", syscall.EPIPE), CategoryRetriable},
		{"generic error with connection refused", errors.New("dial tcp: connection refused"), CategoryRetriable},
		{"generic error with timeout", errors.New("operation timeout"), CategoryRetriable},
		{"generic error with parse error", errors.New("parse error: invalid syntax"), CategoryFatal},
		{"server error", &StatusError{StatusCode: 502}, CategoryRetriable},
		{"throttled", &StatusError{StatusCode: 429}, CategoryTransient},
		{"unavailable", &StatusError{StatusCode: 503}, CategoryTransient},
		{"bad request", &StatusError{StatusCode: 400, Body: "invalid record"}, CategoryFatal},
		{"wrapped status", fmt.Errorf("post batch: %w", &StatusError{StatusCode: 404}), CategoryFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ClassifyError(tt.err); result != tt.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestClassifiedError(t *testing.T) {
	originalErr := errors.New("test error")
	classified := NewClassifiedError(originalErr, CategoryRetriable, "batch insert failed")

	if expected := "batch insert failed: test error"; classified.Error() != expected {
		t.Errorf("Error() = %v, want %v", classified.Error(), expected)
	}
	if !errors.Is(classified, originalErr) {
		t.Error("classified error should wrap the original error")
	}

	classified.WithMetadata("collection", "payments")
	if classified.Metadata["collection"] != "payments" {
		t.Error("Metadata not set correctly")
	}

	if category := ClassifyError(classified); category != CategoryRetriable {
		t.Errorf("ClassifyError(classified) = %v, want %v", category, CategoryRetriable)
	}
}

func TestStatusError(t *testing.T) {
	err := &StatusError{StatusCode: 400, Body: "missing amount"}
	if err.Error() != "unexpected status 400 Bad Request: missing amount" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if (&StatusError{StatusCode: 500}).Error() != "unexpected status 500 Internal Server Error" {
		t.Errorf("unexpected message %q", (&StatusError{StatusCode: 500}).Error())
	}
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retriable error", syscall.ECONNREFUSED, true},
		{"transient error", syscall.EAGAIN, true},
		{"fatal error", syscall.EINVAL, false},
		{"context canceled", context.Canceled, false},
		{"rejected batch", &StatusError{StatusCode: 422}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsRetriable(tt.err); result != tt.expected {
				t.Errorf("IsRetriable(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestIsFatalAndTransient(t *testing.T) {
	if !IsFatal(syscall.EINVAL) {
		t.Error("EINVAL should be fatal")
	}
	if IsFatal(syscall.ECONNREFUSED) {
		t.Error("ECONNREFUSED should not be fatal")
	}
	if !IsTransient(syscall.EAGAIN) {
		t.Error("EAGAIN should be transient")
	}
	if IsTransient(syscall.ECONNREFUSED) {
		t.Error("ECONNREFUSED should not be transient")
	}
}

type mockNetError struct {
	timeout bool
}

func (e *mockNetError) Error() string   { return "mock network error" }
func (e *mockNetError) Timeout() bool   { return e.timeout }
func (e *mockNetError) Temporary() bool { return false }

var _ net.Error = (*mockNetError)(nil)

func TestNetError(t *testing.T) {
	if category := ClassifyError(&mockNetError{timeout: true}); category != CategoryRetriable {
		t.Errorf("ClassifyError(timeout network error) = %v, want %v", category, CategoryRetriable)
	}
	if category := ClassifyError(&mockNetError{}); category != CategoryRetriable {
		t.Errorf("ClassifyError(network error) = %v, want %v", category, CategoryRetriable)
	}
}

func TestErrorCategoryString(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{CategoryRetriable, "retriable"},
		{CategoryFatal, "fatal"},
		{CategoryTransient, "transient"},
		{ErrorCategory(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.category.String(); result != tt.expected {
				t.Errorf("String() = %v, want %v", result, tt.expected)
			}
		})
	}
}
