package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		MemberID:  2,
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got != ac {
		t.Errorf("FromContext = %+v, want %+v", got, ac)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestMemberID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7, MemberID: 4})
	if MemberID(ctx) != 4 {
		t.Errorf("MemberID = %d, want 4", MemberID(ctx))
	}
	if MemberID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}
