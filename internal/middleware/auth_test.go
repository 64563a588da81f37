package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/database"
	"github.com/dukerupert/famwell/internal/store"
)

type authFixture struct {
	sessions *store.SessionStore
	users    *store.UserStore
	members  *store.FamilyMemberStore
}

func setupAuthMiddlewareDB(t *testing.T) authFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return authFixture{
		sessions: store.NewSessionStore(db),
		users:    store.NewUserStore(db),
		members:  store.NewFamilyMemberStore(db),
	}
}

func unreachable(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func TestRequireAuthNoCookiePage(t *testing.T) {
	f := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rec := httptest.NewRecorder()
	RequireAuth(f.sessions, f.users)(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want %q", loc, "/login")
	}
}

func TestRequireAuthNoCookieAPI(t *testing.T) {
	f := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/api/profile", nil)
	rec := httptest.NewRecorder()
	RequireAuth(f.sessions, f.users)(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	f := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	RequireAuth(f.sessions, f.users)(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidSession(t *testing.T) {
	f := setupAuthMiddlewareDB(t)

	m, _ := f.members.Create("Sarah", "Mom", "👩")
	u, _ := f.users.Create(store.NewUser{Email: "sarah@example.com", Name: "Sarah", MemberID: &m.ID})
	sess, _ := f.sessions.Create(u.ID)

	var gotAC auth.AuthContext
	handler := RequireAuth(f.sessions, f.users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", gotAC.UserID, u.ID)
	}
	if gotAC.MemberID != m.ID {
		t.Errorf("MemberID = %d, want %d", gotAC.MemberID, m.ID)
	}
	if gotAC.SessionID != sess.ID {
		t.Errorf("SessionID = %d, want %d", gotAC.SessionID, sess.ID)
	}
}

func TestRequireAuthDeletedSession(t *testing.T) {
	f := setupAuthMiddlewareDB(t)

	u, _ := f.users.Create(store.NewUser{Email: "david@example.com", Name: "David"})
	sess, _ := f.sessions.Create(u.ID)
	if err := f.sessions.Delete(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	RequireAuth(f.sessions, f.users)(unreachable(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireMember(t *testing.T) {
	ok := RequireMember(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: 1, MemberID: 2})
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest("GET", "/api/checkins", nil).WithContext(ctx))
	if rec.Code != http.StatusNoContent {
		t.Errorf("linked: status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	ctx = auth.WithAuth(context.Background(), auth.AuthContext{UserID: 1})
	rec = httptest.NewRecorder()
	RequireMember(unreachable(t)).ServeHTTP(rec, httptest.NewRequest("GET", "/api/checkins", nil).WithContext(ctx))
	if rec.Code != http.StatusForbidden {
		t.Errorf("unlinked: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
