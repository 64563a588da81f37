package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/push"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
)

type NudgeHandler struct {
	nudgeStore        *store.NudgeStore
	memberStore       *store.FamilyMemberStore
	relationshipStore *store.RelationshipStore
	activityStore     *store.ActivityStore
	settingsStore     *store.SettingsStore
	notifier          *push.Notifier
	hub               *websocket.Hub
	logger            *slog.Logger
}

func NewNudgeHandler(
	ns *store.NudgeStore,
	ms *store.FamilyMemberStore,
	rs *store.RelationshipStore,
	as *store.ActivityStore,
	ss *store.SettingsStore,
	notifier *push.Notifier,
	hub *websocket.Hub,
	logger *slog.Logger,
) *NudgeHandler {
	return &NudgeHandler{
		nudgeStore:        ns,
		memberStore:       ms,
		relationshipStore: rs,
		activityStore:     as,
		settingsStore:     ss,
		notifier:          notifier,
		hub:               hub,
		logger:            logger,
	}
}

// List handles GET /api/nudges with an optional ?status=pending|sent.
func (h *NudgeHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != wellness.NudgeStatusPending && status != wellness.NudgeStatusSent {
		writeError(w, http.StatusBadRequest, "status must be pending or sent")
		return
	}
	nudges, err := h.nudgeStore.ListByOwner(auth.MemberID(r.Context()), status)
	if err != nil {
		writeStoreError(w, h.logger, "list nudges", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(nudges))
}

// Generate handles POST /api/nudges/generate. It runs the nudge rules over
// the roster as the caller sees it and the graph; a rule whose nudge is
// still pending is not queued again.
func (h *NudgeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	settings, err := h.settingsStore.Get(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return
	}
	if !settings.AIInsights {
		writeError(w, http.StatusForbidden, "nudge suggestions are turned off in settings")
		return
	}

	members, err := h.memberStore.List()
	if err != nil {
		writeStoreError(w, h.logger, "list family members", err)
		return
	}
	edges, err := h.relationshipStore.List()
	if err != nil {
		writeStoreError(w, h.logger, "list relationships", err)
		return
	}
	mask, err := loadMoodMask(h.settingsStore)
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return
	}

	created := []model.Nudge{}
	for _, c := range wellness.SuggestNudges(memberID, mask.members(members, memberID), edges) {
		n, added, err := h.nudgeStore.CreatePending(c.ForOwner(memberID))
		if err != nil {
			writeStoreError(w, h.logger, "queue nudge", err)
			return
		}
		if added {
			created = append(created, *n)
		}
	}

	pending, err := h.nudgeStore.ListByOwner(memberID, wellness.NudgeStatusPending)
	if err != nil {
		writeStoreError(w, h.logger, "list nudges", err)
		return
	}
	h.logger.Info("nudges generated", "member_id", memberID, "created", len(created))
	writeJSON(w, http.StatusOK, map[string][]model.Nudge{
		"created": created,
		"pending": emptyIfNil(pending),
	})
}

// Send handles POST /api/nudges/{id}/send. Sending moves the nudge to sent
// exactly once; repeating the request returns the sent nudge unchanged.
func (h *NudgeHandler) Send(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.nudgeStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get nudge", err)
		return
	}
	if existing == nil || existing.OwnerMemberID != memberID {
		writeError(w, http.StatusNotFound, "nudge not found")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" && len(existing.Suggestions) > 0 {
		req.Message = existing.Suggestions[0]
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "message is too long")
		return
	}

	n, err := h.nudgeStore.MarkSent(id, req.Message)
	if errors.Is(err, wellness.ErrAlreadyInState) {
		writeJSON(w, http.StatusOK, n)
		return
	}
	if err != nil {
		writeStoreError(w, h.logger, "send nudge", err)
		return
	}
	if n == nil {
		writeError(w, http.StatusNotFound, "nudge not found")
		return
	}

	h.deliver(n)
	writeJSON(w, http.StatusOK, n)
}

// deliver tells the nudge's target about it and records it in the feed.
func (h *NudgeHandler) deliver(n *model.Nudge) {
	sender, err := h.memberStore.GetByID(n.OwnerMemberID)
	if err != nil || sender == nil {
		h.logger.Error("lookup nudge sender", "member_id", n.OwnerMemberID, "error", err)
		return
	}

	h.hub.SendToMembers(websocket.NewEvent(websocket.EntityNudge, "sent", n.ID, n), n.OwnerMemberID)
	if n.TargetMemberID == nil {
		return
	}
	target := *n.TargetMemberID

	h.hub.SendToMembers(websocket.NewEvent(websocket.EntityNudge, "received", n.ID, map[string]any{
		"from":    sender.Name,
		"message": n.SentMessage,
	}), target)
	h.notifier.NotifyMember(target, push.KindNudge, push.Payload{
		Title: fmt.Sprintf("%s is thinking of you", sender.Name),
		Body:  n.SentMessage,
		URL:   "/chat",
		Tag:   fmt.Sprintf("nudge-%d", n.ID),
	})

	recipient, err := h.memberStore.GetByID(target)
	if err != nil || recipient == nil {
		return
	}
	activity, err := h.activityStore.Add(&n.OwnerMemberID, model.ActivityNudge,
		fmt.Sprintf("%s reached out to %s", sender.Name, recipient.Name))
	if err != nil {
		h.logger.Error("add nudge activity", "error", err)
		return
	}
	h.hub.Broadcast(websocket.NewEvent(websocket.EntityActivity, "created", activity.ID, activity))
}
