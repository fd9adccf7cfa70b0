package requestctx

import (
	"context"
	"testing"
)

func TestPrincipalFromContextRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{ID: "user-42", Role: RoleClient})
	got, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if got.ID != "user-42" {
		t.Fatalf("principal id = %q, want %q", got.ID, "user-42")
	}
	if got.Role != RoleClient {
		t.Fatalf("principal role = %q, want %q", got.Role, RoleClient)
	}
}

func TestPrincipalFromContextEmpty(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("expected no principal")
	}
}

func TestPrincipalFromContextNil(t *testing.T) {
	if _, ok := PrincipalFromContext(nil); ok {
		t.Fatal("expected no principal for nil context")
	}
}

func TestWithPrincipalNilContext(t *testing.T) {
	ctx := WithPrincipal(nil, Principal{ID: "user-99", Role: RoleFreelancer})
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	got, ok := PrincipalFromContext(ctx)
	if !ok || got.ID != "user-99" {
		t.Fatalf("principal = %+v ok=%v, want user-99", got, ok)
	}
}
