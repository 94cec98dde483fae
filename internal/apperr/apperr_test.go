package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("Смета не найдена: X"))

	if got := KindOf(err); got != KindNotFound {
		t.Fatalf("KindOf = %v, want %v", got, KindNotFound)
	}
	if got := Message(err); got != "Смета не найдена: X" {
		t.Fatalf("Message = %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("boom")
	if got := KindOf(err); got != KindUnknown {
		t.Fatalf("KindOf = %v, want unknown", got)
	}
	if got := Message(err); got != "boom" {
		t.Fatalf("Message = %q, want boom", got)
	}
}

func TestStoreFailureKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := StoreFailure("Не удалось сохранить", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the cause")
	}
}
