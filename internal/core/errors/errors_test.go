package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("Position", func(t *testing.T) {
		err := Newf(CodeUnknownSignalReference, "identifier %q is not declared", "%").WithPosition(12, 240)
		expected := `line 12: [UNKNOWN_SIGNAL_REFERENCE] identifier "%" is not declared`
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		line, ok := LineOf(fmt.Errorf("parse: %w", err))
		if !ok || line != 12 {
			t.Errorf("expected line 12, got %d (ok=%v)", line, ok)
		}
	})

	t.Run("ExtraContext", func(t *testing.T) {
		err := Newf(CodeVectorWidthMismatch, "too wide").WithContext(CtxSignal, "top.bus").WithContext(CtxToken, "b10101")
		expected := "[VECTOR_WIDTH_MISMATCH] too wide [signal=top.bus token=b10101]"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		if !IsCode(fmt.Errorf("outer: %w", err), CodeInternal) {
			t.Error("expected IsCode to return true for wrapped CodeInternal")
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		if _, ok := CodeOf(errors.New("plain")); ok {
			t.Error("expected no code for a plain error")
		}
		code, ok := CodeOf(New(CodeScopeMismatch, "x"))
		if !ok || code != CodeScopeMismatch {
			t.Errorf("expected SCOPE_MISMATCH, got %q", code)
		}
	})

	t.Run("AddContextPlainError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxPath, "dump.vcd")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected plain errors to be wrapped as internal, got %v", err)
		}
	})
}

func TestIsBodyCode(t *testing.T) {
	body := []ErrorCode{CodeUnknownSignalReference, CodeNonMonotonicTime, CodeVectorWidthMismatch}
	for _, c := range body {
		if !IsBodyCode(c) {
			t.Errorf("expected %s to be a body code", c)
		}
	}
	fatal := []ErrorCode{CodeMalformedToken, CodeScopeMismatch, CodeDuplicateSignalID, CodeInvalidWidth, CodeNoClockSignal}
	for _, c := range fatal {
		if IsBodyCode(c) {
			t.Errorf("expected %s not to be a body code", c)
		}
	}
}

func TestContextValue(t *testing.T) {
	err := fmt.Errorf("load: %w", AddContext(New(CodeNonMonotonicTime, "time went back"), CtxCycles, 3))
	v, ok := ContextValue(err, CtxCycles)
	if !ok || v != 3 {
		t.Fatalf("expected cycles=3, got %v (%v)", v, ok)
	}
	if _, ok := ContextValue(err, CtxSignal); ok {
		t.Fatal("expected no signal context")
	}
	if _, ok := ContextValue(errors.New("plain"), CtxCycles); ok {
		t.Fatal("expected no context on a plain error")
	}
}
