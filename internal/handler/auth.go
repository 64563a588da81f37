package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/export"
	"github.com/dukerupert/famwell/internal/federated"
	"github.com/dukerupert/famwell/internal/middleware"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/seed"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/websocket"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

type AuthHandler struct {
	userStore    *store.UserStore
	memberStore  *store.FamilyMemberStore
	sessionStore *store.SessionStore
	demoStores   seed.Stores
	verifier     *federated.Verifier
	archiver     *export.Archiver
	hub          *websocket.Hub
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler returns the sign-in handler. verifier may be nil when
// federated sign-in is not configured.
func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	demo seed.Stores,
	verifier *federated.Verifier,
	archiver *export.Archiver,
	hub *websocket.Hub,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		memberStore:  demo.Members,
		sessionStore: ss,
		demoStores:   demo,
		verifier:     verifier,
		archiver:     archiver,
		hub:          hub,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
}

// Signup handles POST /auth/signup. It adds the new user to the roster and
// signs them in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.TrimSpace(req.Role)
	req.Avatar = strings.TrimSpace(req.Avatar)

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.Role == "" {
		req.Role = "Parent"
	}
	if req.Avatar == "" {
		req.Avatar = "🙂"
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeStoreError(w, h.logger, "look up user", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with that email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	user, ok := h.createLinkedUser(w, store.NewUser{
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		Avatar:       req.Avatar,
		Provider:     model.ProviderPassword,
		PasswordHash: string(hash),
	})
	if !ok {
		return
	}
	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, http.StatusCreated, user.Profile())
}

// createLinkedUser creates a roster member for in and a user linked to it.
func (h *AuthHandler) createLinkedUser(w http.ResponseWriter, in store.NewUser) (*model.User, bool) {
	exists, err := h.memberStore.NameExists(in.Name, 0)
	if err != nil {
		writeStoreError(w, h.logger, "check name", err)
		return nil, false
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return nil, false
	}

	member, err := h.memberStore.Create(in.Name, in.Role, in.Avatar)
	if err != nil {
		writeStoreError(w, h.logger, "create family member", err)
		return nil, false
	}
	in.MemberID = &member.ID

	user, err := h.userStore.Create(in)
	if err != nil {
		if derr := h.memberStore.Delete(member.ID); derr != nil {
			h.logger.Error("remove orphaned member", "member_id", member.ID, "error", derr)
		}
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "an account with that email already exists")
			return nil, false
		}
		writeStoreError(w, h.logger, "create account", err)
		return nil, false
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityMember, "created", member.ID, member))
	return user, true
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeStoreError(w, h.logger, "look up user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	hash, err := h.userStore.PasswordHash(user.ID)
	if err != nil {
		writeStoreError(w, h.logger, "look up user", err)
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

// Federated handles POST /auth/federated with an ID token from the
// configured identity provider. Unknown emails get a new account.
func (h *AuthHandler) Federated(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeError(w, http.StatusNotFound, "federated sign-in is not configured")
		return
	}
	var req struct {
		IDToken string `json:"id_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.IDToken = strings.TrimSpace(req.IDToken)
	if req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "id_token is required")
		return
	}

	id, err := h.verifier.Verify(req.IDToken)
	if err != nil {
		h.logger.Warn("federated token rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid identity token")
		return
	}

	user, err := h.userStore.GetByEmail(id.Email)
	if err != nil {
		writeStoreError(w, h.logger, "look up user", err)
		return
	}
	status := http.StatusOK
	if user == nil {
		avatar := "🙂"
		if id.Picture != "" {
			avatar = id.Picture
		}
		var ok bool
		user, ok = h.createLinkedUser(w, store.NewUser{
			Email:    id.Email,
			Name:     id.Name,
			Role:     "Parent",
			Avatar:   avatar,
			Provider: model.ProviderFederated,
		})
		if !ok {
			return
		}
		status = http.StatusCreated
	}

	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, status, user.Profile())
}

// Demo handles POST /auth/demo. It loads the demo family into an empty
// roster, or reuses it when already loaded, and signs in as the demo parent.
func (h *AuthHandler) Demo(w http.ResponseWriter, r *http.Request) {
	user, err := seed.Load(h.demoStores, h.logger)
	if errors.Is(err, seed.ErrFamilyExists) {
		writeError(w, http.StatusConflict, "a family is already set up; sign in instead")
		return
	}
	if err != nil {
		writeStoreError(w, h.logger, "load demo family", err)
		return
	}

	if !h.startSession(w, r, user) {
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.sessionStore.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	h.clearCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Profile handles GET /api/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user.Profile())
}

// UpdateProfile handles PUT /api/profile. The linked roster member follows
// the new name, role and avatar.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req model.Profile
	if !decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.TrimSpace(req.Role)
	req.Avatar = strings.TrimSpace(req.Avatar)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Email == "" {
		req.Email = user.Email
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Role == "" {
		req.Role = user.Role
	}
	if req.Avatar == "" {
		req.Avatar = user.Avatar
	}

	if user.MemberID != nil {
		member, err := h.memberStore.GetByID(*user.MemberID)
		if err != nil {
			writeStoreError(w, h.logger, "get family member", err)
			return
		}
		if member != nil {
			exists, err := h.memberStore.NameExists(req.Name, member.ID)
			if err != nil {
				writeStoreError(w, h.logger, "check name", err)
				return
			}
			if exists {
				writeError(w, http.StatusConflict, "a family member with that name already exists")
				return
			}
			updated, err := h.memberStore.Update(member.ID, req.Name, req.Role, req.Avatar, member.WeeklyGoal)
			if err != nil {
				writeStoreError(w, h.logger, "update family member", err)
				return
			}
			// no payload: the record carries a mood some viewers may not see
			h.hub.Broadcast(websocket.NewEvent(websocket.EntityMember, "updated", updated.ID, nil))
		}
	}

	updated, err := h.userStore.UpdateProfile(user.ID, req)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "an account with that email already exists")
		return
	}
	if err != nil {
		writeStoreError(w, h.logger, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Profile())
}

// DeleteAccount handles DELETE /api/profile. It removes uploaded archives,
// the account and its roster member, and ends every session.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.archiver.Purge(r.Context(), user.ID); err != nil {
		h.logger.Error("purge archives", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete archived exports")
		return
	}
	if err := h.sessionStore.DeleteByUser(user.ID); err != nil {
		writeStoreError(w, h.logger, "end sessions", err)
		return
	}
	if err := h.userStore.Delete(user.ID); err != nil {
		writeStoreError(w, h.logger, "delete account", err)
		return
	}
	if user.MemberID != nil {
		if err := h.memberStore.Delete(*user.MemberID); err != nil {
			writeStoreError(w, h.logger, "delete family member", err)
			return
		}
		h.hub.Broadcast(websocket.NewEvent(websocket.EntityMember, "deleted", *user.MemberID, nil))
	}

	h.logger.Info("account deleted", "user_id", user.ID)
	h.clearCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "get user", err)
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return nil, false
	}
	return user, true
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) bool {
	sess, err := h.sessionStore.Create(user.ID)
	if err != nil {
		writeStoreError(w, h.logger, "create session", err)
		return false
	}
	if user.MemberID != nil {
		if err := h.memberStore.Touch(*user.MemberID); err != nil {
			h.logger.Warn("touch member", "member_id", *user.MemberID, "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(store.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie || r.TLS != nil,
	})
	h.logger.Info("signed in", "user_id", user.ID, "provider", user.Provider)
	return true
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie || r.TLS != nil,
	})
}
