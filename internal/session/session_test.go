package session

import (
	"context"
	"testing"
)

func TestFromContext(t *testing.T) {
	ctx := WithSession(context.Background(), Session{UserID: "u-1", SessionID: "s-1", Timezone: "Europe/Minsk"})

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatalf("expected session in context")
	}
	if got.UserID != "u-1" || got.Timezone != "Europe/Minsk" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestFromContextRejectsEmptyUser(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no session in bare context")
	}
	ctx := WithSession(context.Background(), Session{SessionID: "s-1"})
	if _, ok := FromContext(ctx); ok {
		t.Fatalf("expected session without user to be rejected")
	}
}
