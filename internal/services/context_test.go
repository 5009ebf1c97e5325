package services_test

import (
	"context"
	"testing"

	"truvideo/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "abc")
	ctx = services.WithSegment(ctx, 2)

	if id, ok := services.SessionIDFromContext(ctx); !ok || id != "abc" {
		t.Fatalf("unexpected session id: %v %v", id, ok)
	}
	if idx, ok := services.SegmentFromContext(ctx); !ok || idx != 2 {
		t.Fatalf("unexpected segment: %v %v", idx, ok)
	}
}

func TestBlankSessionPreservesContext(t *testing.T) {
	ctx := services.WithSessionID(context.Background(), "")
	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session value")
	}
	ctx = services.WithSegment(ctx, -1)
	if _, ok := services.SegmentFromContext(ctx); ok {
		t.Fatal("expected no segment value")
	}
}
