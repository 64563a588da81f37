package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/famwell/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)
	m := createMember(t, db, "Alice")

	u, err := us.Create(NewUser{Email: "alice@example.com", Name: "Alice", Role: "Parent", PasswordHash: "hash", MemberID: &m.ID})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.Provider != model.ProviderPassword {
		t.Errorf("provider = %q, want password", u.Provider)
	}
	if u.MemberID == nil || *u.MemberID != m.ID {
		t.Errorf("member_id = %v, want %d", u.MemberID, m.ID)
	}

	hash, err := us.PasswordHash(u.ID)
	if err != nil {
		t.Fatalf("password hash: %v", err)
	}
	if hash != "hash" {
		t.Errorf("hash = %q, want %q", hash, "hash")
	}

	linked, _ := us.GetByMemberID(m.ID)
	if linked == nil || linked.ID != u.ID {
		t.Errorf("GetByMemberID = %+v", linked)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(openTestDB(t))
	if _, err := us.Create(NewUser{Email: "alice@example.com", Name: "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := us.Create(NewUser{Email: "ALICE@example.com", Name: "Alice 2"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestUserGetByEmailCaseInsensitive(t *testing.T) {
	us := NewUserStore(openTestDB(t))
	us.Create(NewUser{Email: "alice@example.com", Name: "Alice"})

	u, err := us.GetByEmail("Alice@Example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user")
	}

	missing, _ := us.GetByEmail("bob@example.com")
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserUpdateProfileAndDelete(t *testing.T) {
	db := openTestDB(t)
	us := NewUserStore(db)
	u, _ := us.Create(NewUser{Email: "alice@example.com", Name: "Alice"})

	updated, err := us.UpdateProfile(u.ID, model.Profile{Name: "Alice B", Role: "Mom", Avatar: "👩", Email: "alice.b@example.com"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Profile() != (model.Profile{Name: "Alice B", Role: "Mom", Avatar: "👩", Email: "alice.b@example.com"}) {
		t.Errorf("profile = %+v", updated.Profile())
	}

	ss := NewSessionStore(db)
	sess, _ := ss.Create(u.ID)
	if err := us.Delete(u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := ss.GetByToken(sess.Token)
	if got != nil {
		t.Error("expected sessions to cascade on user delete")
	}
}
