package db

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDec(t *testing.T) {
	if got := Dec("120.50"); !got.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("expected 120.5, got %s", got)
	}
	if got := Dec("garbage"); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestDecPtr_Nil(t *testing.T) {
	if DecPtr(nil) != nil {
		t.Fatalf("expected nil")
	}
	s := "3"
	if got := DecPtr(&s); got == nil || !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestStrPtr(t *testing.T) {
	if StrPtr(nil) != nil {
		t.Fatalf("expected nil")
	}
	d := decimal.RequireFromString("10.25")
	if got := StrPtr(&d); got == nil || *got != "10.25" {
		t.Fatalf("unexpected %v", got)
	}
}
