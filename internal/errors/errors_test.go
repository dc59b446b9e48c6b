package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDynaRecError_Error(t *testing.T) {
	err := New(ErrCategorySchema, CodeTableNotFound, "table missing")
	expected := "[SCHEMA:TABLE_NOT_FOUND] table missing"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestDynaRecError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCategoryStore, CodeStoreFailure, "insert failed", cause)
	expected := "[STORE:STORE_FAILURE] insert failed: disk full"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestDynaRecError_ErrorWithFailures(t *testing.T) {
	err := NewValidationError([]FieldFailure{
		{Field: "wallet", Message: "expected float, got string"},
	})
	expected := "[VALIDATION:VALIDATION_FAILED] data does not conform to schema (wallet: expected float, got string)"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestDynaRecError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStore, CodeStoreFailure, "wrapped", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestDynaRecError_Is(t *testing.T) {
	err1 := New(ErrCategoryRecord, CodeNotPersisted, "first")
	err2 := New(ErrCategoryRecord, CodeNotPersisted, "second")
	err3 := New(ErrCategoryRecord, CodeAlreadyDestroyed, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewNotPersisted("users"))
	if got := GetCategory(err); got != ErrCategoryRecord {
		t.Errorf("GetCategory = %q, want %q", got, ErrCategoryRecord)
	}
	if got := GetCode(err); got != CodeNotPersisted {
		t.Errorf("GetCode = %q, want %q", got, CodeNotPersisted)
	}
	if got := GetCategory(fmt.Errorf("plain")); got != "" {
		t.Errorf("GetCategory on plain error = %q, want empty", got)
	}
}

func TestGetFailures(t *testing.T) {
	failures := []FieldFailure{
		{Field: "age", Message: "expected int, got string"},
		{Field: "name", Message: "required field missing"},
	}
	err := fmt.Errorf("save: %w", NewValidationError(failures))

	got := GetFailures(err)
	if len(got) != 2 {
		t.Fatalf("GetFailures returned %d failures, want 2", len(got))
	}
	if got[0].Field != "age" || got[1].Field != "name" {
		t.Errorf("failures out of order: %v", got)
	}
}
