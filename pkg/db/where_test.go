package db

import (
	"reflect"
	"testing"
)

func TestWhere(t *testing.T) {
	var w Where
	if w.String() != "" {
		t.Fatalf("expected empty clause, got %q", w.String())
	}

	w.Add("a = $%d", 1)
	w.AddRaw("active")
	w.Add("b ILIKE $%d", "x")
	if got := w.String(); got != "WHERE a = $1 AND active AND b ILIKE $2\n" {
		t.Fatalf("unexpected clause %q", got)
	}

	sql, args := w.Page("SELECT 1", 10, 20)
	if sql != "SELECT 1 LIMIT $3 OFFSET $4" {
		t.Fatalf("unexpected sql %q", sql)
	}
	if !reflect.DeepEqual(args, []any{1, "x", 10, 20}) {
		t.Fatalf("unexpected args %v", args)
	}
	if len(w.Args) != 2 {
		t.Fatalf("Page must not grow the filter args, got %d", len(w.Args))
	}

	if ph := w.Arg(5); ph != "$3" {
		t.Fatalf("expected $3, got %s", ph)
	}
}

func TestLike(t *testing.T) {
	if got := Like(" ana "); got != "%ana%" {
		t.Fatalf("got %q", got)
	}
	if got := Like("50%_off"); got != `%50\%\_off%` {
		t.Fatalf("got %q", got)
	}
}
