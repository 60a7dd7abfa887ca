package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "ClassifyGroup")
		panic("index out of range")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if panicErr.Operation != "ClassifyGroup" {
		t.Errorf("Expected operation 'ClassifyGroup', got '%s'", panicErr.Operation)
	}
	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "ClassifyGroup")
		return nil
	}

	if err := testFunc(); err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	testFunc := func() (err error) {
		defer Recover(&err, "Train")
		err = originalErr
		panic("panic after error")
	}

	err := testFunc()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "panic in Train") || !strings.Contains(msg, "original error") {
		t.Errorf("Error message should contain panic and original error: %s", msg)
	}
	if !Is(err, originalErr) {
		t.Error("original error should remain in the chain")
	}
}

func TestSafeExecute(t *testing.T) {
	err := SafeExecute("handler", func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})
	var panicErr *PanicError
	if !As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %v", err)
	}

	want := fmt.Errorf("plain")
	if got := SafeExecute("handler", func() error { return want }); got != want {
		t.Errorf("SafeExecute should pass through errors, got %v", got)
	}
}
