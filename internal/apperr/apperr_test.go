package apperr

import (
	"fmt"
	"testing"
)

func TestAs_Wrapped(t *testing.T) {
	err := fmt.Errorf("loading booking: %w", NotFound("Reserva no encontrada"))
	e, ok := As(err)
	if !ok || e.Kind != KindNotFound {
		t.Fatalf("expected wrapped not found, got %v", err)
	}
	if !Is(err, KindNotFound) || Is(err, KindValidation) {
		t.Fatalf("Is mismatch")
	}
}

func TestWithCode_DoesNotMutate(t *testing.T) {
	base := NotFound("x")
	c := base.WithCode("STATE_NOT_FOUND")
	if base.Code != "NOT_FOUND" || c.Code != "STATE_NOT_FOUND" {
		t.Fatalf("unexpected codes %q %q", base.Code, c.Code)
	}
}
