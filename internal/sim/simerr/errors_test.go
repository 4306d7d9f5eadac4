package simerr

import (
	"errors"
	"testing"
)

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(ErrStorageFull, "storage %d", 3)
	if !errors.Is(err, ErrStorageFull) {
		t.Fatalf("expected errors.Is to match sentinel: %v", err)
	}
	if errors.Is(err, ErrPathNotFound) {
		t.Fatalf("unexpected match on different code")
	}
	if got := Code(err); got != CodeStorageFull {
		t.Fatalf("expected %s, got %s", CodeStorageFull, got)
	}
	if got := Code(errors.New("plain")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}

func TestIsKnownCode(t *testing.T) {
	for c := range knownCodes {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}
