package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/websocket"
)

const maxWeeklyGoal = 5000

type FamilyMemberHandler struct {
	store         *store.FamilyMemberStore
	settingsStore *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewFamilyMemberHandler(s *store.FamilyMemberStore, ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{store: s, settingsStore: ss, hub: hub, logger: logger}
}

type memberRequest struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Avatar     string `json:"avatar"`
	WeeklyGoal *int   `json:"weekly_goal"`
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.List()
	if err != nil {
		writeStoreError(w, h.logger, "list family members", err)
		return
	}
	mask, err := loadMoodMask(h.settingsStore)
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, mask.members(members, auth.MemberID(r.Context())))
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.TrimSpace(req.Role)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}
	if req.Avatar = strings.TrimSpace(req.Avatar); req.Avatar == "" {
		req.Avatar = "🙂"
	}
	if req.WeeklyGoal != nil {
		if err := model.InRange("weekly_goal", *req.WeeklyGoal, 0, maxWeeklyGoal); err != nil {
			writeStoreError(w, h.logger, "create family member", err)
			return
		}
	}

	exists, err := h.store.NameExists(req.Name, 0)
	if err != nil {
		writeStoreError(w, h.logger, "check name", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	member, err := h.store.Create(req.Name, req.Role, req.Avatar)
	if err != nil {
		writeStoreError(w, h.logger, "create family member", err)
		return
	}
	if req.WeeklyGoal != nil {
		if member, err = h.store.Update(member.ID, member.Name, member.Role, member.Avatar, *req.WeeklyGoal); err != nil {
			writeStoreError(w, h.logger, "set weekly goal", err)
			return
		}
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityMember, "created", member.ID, member))
	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get family member", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	var req memberRequest
	if !decode(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Role = strings.TrimSpace(req.Role); req.Role == "" {
		req.Role = existing.Role
	}
	if req.Avatar = strings.TrimSpace(req.Avatar); req.Avatar == "" {
		req.Avatar = existing.Avatar
	}
	goal := existing.WeeklyGoal
	if req.WeeklyGoal != nil {
		goal = *req.WeeklyGoal
	}
	if err := model.InRange("weekly_goal", goal, 0, maxWeeklyGoal); err != nil {
		writeStoreError(w, h.logger, "update family member", err)
		return
	}

	exists, err := h.store.NameExists(req.Name, id)
	if err != nil {
		writeStoreError(w, h.logger, "check name", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	member, err := h.store.Update(id, req.Name, req.Role, req.Avatar, goal)
	if err != nil {
		writeStoreError(w, h.logger, "update family member", err)
		return
	}

	mask, err := loadMoodMask(h.settingsStore)
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return
	}
	mask.announce(h.hub, "updated", *member)
	writeJSON(w, http.StatusOK, mask.member(*member, auth.MemberID(r.Context())))
}

func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get family member", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeStoreError(w, h.logger, "delete family member", err)
		return
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityMember, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
