package errors

import (
	"errors"
	"testing"
)

type customError struct {
	Msg string
}

func (e customError) Error() string { return e.Msg }

func TestNew(t *testing.T) {
	err := New("test error")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "test error" {
		t.Errorf("expected 'test error', got '%s'", err.Error())
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("wrap non-nil error", func(t *testing.T) {
		wrapped := Wrap(baseErr, "wrapped")
		if wrapped == nil {
			t.Fatal("expected wrapped error, got nil")
		}
		if wrapped.Error() != "wrapped: base error" {
			t.Errorf("unexpected message: %s", wrapped.Error())
		}
		if !errors.Is(wrapped, baseErr) {
			t.Error("wrapped error should match base error")
		}
	})

	t.Run("wrap nil error", func(t *testing.T) {
		if Wrap(nil, "wrapped") != nil {
			t.Error("wrapping nil should return nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("sentinel errors match through wrapping", func(t *testing.T) {
		wrapped := Wrap(ErrInvalidState, "envelope already sent")
		if !Is(wrapped, ErrInvalidState) {
			t.Error("expected wrapped error to match ErrInvalidState")
		}
		if Is(wrapped, ErrNotFound) {
			t.Error("wrapped error should not match ErrNotFound")
		}
	})

	t.Run("distinct sentinels do not match", func(t *testing.T) {
		if Is(ErrConflict, ErrConfiguration) {
			t.Error("distinct sentinels should not match")
		}
	})
}

func TestAs(t *testing.T) {
	base := customError{Msg: "custom"}
	wrapped := Wrap(base, "context")

	var target customError
	if !As(wrapped, &target) {
		t.Fatal("expected As to find customError")
	}
	if target.Msg != "custom" {
		t.Errorf("expected 'custom', got '%s'", target.Msg)
	}
}
