package services_test

import (
	"context"
	"testing"

	"kinobot/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithUserID(ctx, 42)
	ctx = services.WithCode(ctx, "4821")
	ctx = services.WithUpdateID(ctx, 9001)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.UserIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected user id: %v %v", id, ok)
	}
	if code, ok := services.CodeFromContext(ctx); !ok || code != "4821" {
		t.Fatalf("unexpected code: %v %v", code, ok)
	}
	if id, ok := services.UpdateIDFromContext(ctx); !ok || id != 9001 {
		t.Fatalf("unexpected update id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCode(ctx, "")
	ctx = services.WithUserID(ctx, 0)
	if _, ok := services.CodeFromContext(ctx); ok {
		t.Fatal("expected no code value")
	}
	if _, ok := services.UserIDFromContext(ctx); ok {
		t.Fatal("expected no user value")
	}
}
