package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	if FromContext(context.Background()) != Log {
		t.Fatalf("expected global logger")
	}
}

func TestFromContext_ReturnsAttached(t *testing.T) {
	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected attached logger")
	}
}

func TestInitialize_RejectsUnknownLevel(t *testing.T) {
	if err := Initialize("loud"); err == nil {
		t.Fatalf("expected error")
	}
}
