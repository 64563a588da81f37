package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/email"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/push"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
	"github.com/google/uuid"
)

const maxRequestKeyLen = 64

type HelpHandler struct {
	helpStore     *store.HelpRequestStore
	memberStore   *store.FamilyMemberStore
	userStore     *store.UserStore
	settingsStore *store.SettingsStore
	activityStore *store.ActivityStore
	notifier      *push.Notifier
	emailClient   *email.Client
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewHelpHandler(
	hs *store.HelpRequestStore,
	ms *store.FamilyMemberStore,
	us *store.UserStore,
	ss *store.SettingsStore,
	as *store.ActivityStore,
	notifier *push.Notifier,
	ec *email.Client,
	hub *websocket.Hub,
	logger *slog.Logger,
) *HelpHandler {
	return &HelpHandler{
		helpStore:     hs,
		memberStore:   ms,
		userStore:     us,
		settingsStore: ss,
		activityStore: as,
		notifier:      notifier,
		emailClient:   ec,
		hub:           hub,
		logger:        logger,
	}
}

// List handles GET /api/help-requests. ?mine=true keeps the viewer's own
// requests. Anonymous requests from others carry no requester.
func (h *HelpHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer := auth.MemberID(r.Context())

	var requester int64
	if r.URL.Query().Get("mine") == "true" {
		requester = viewer
	}
	requests, err := h.helpStore.List(requester)
	if err != nil {
		writeStoreError(w, h.logger, "list help requests", err)
		return
	}
	for i := range requests {
		redact(&requests[i], viewer)
	}
	writeJSON(w, http.StatusOK, emptyIfNil(requests))
}

func redact(hr *model.HelpRequest, viewer int64) {
	if hr.Anonymous && hr.RequesterID != viewer {
		hr.RequesterID = 0
		hr.RequestKey = ""
	}
}

type helpRequest struct {
	RequestKey string `json:"request_key"`
	Reason     string `json:"reason"`
	Contact    string `json:"contact"`
	Message    string `json:"message"`
	Anonymous  bool   `json:"anonymous"`
}

// Create handles POST /api/help-requests. Clients may send a request_key;
// submitting the same key twice returns the first request with 200 and
// notifies nobody again.
func (h *HelpHandler) Create(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	var req helpRequest
	if !decode(w, r, &req) {
		return
	}
	req.RequestKey = strings.TrimSpace(req.RequestKey)
	req.Message = strings.TrimSpace(req.Message)

	reason, ok := wellness.LookupHelpReason(strings.TrimSpace(req.Reason))
	if !ok {
		writeError(w, http.StatusBadRequest, "reason must be one of the help options")
		return
	}
	contact, ok := wellness.LookupContact(strings.TrimSpace(req.Contact))
	if !ok {
		writeError(w, http.StatusBadRequest, "contact must be one of the help options")
		return
	}
	if req.Message == "" {
		req.Message = wellness.DefaultHelpMessage
	}
	if len(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "message is too long")
		return
	}
	if req.RequestKey == "" {
		req.RequestKey = uuid.NewString()
	} else if len(req.RequestKey) > maxRequestKeyLen {
		writeError(w, http.StatusBadRequest, "request_key is too long")
		return
	}

	hr, added, err := h.helpStore.Create(req.RequestKey, memberID, reason.ID, contact.ID, req.Message, req.Anonymous)
	if err != nil {
		writeStoreError(w, h.logger, "send help request", err)
		return
	}
	if hr.RequesterID != memberID {
		writeError(w, http.StatusConflict, "request_key is already in use")
		return
	}
	if !added {
		writeJSON(w, http.StatusOK, hr)
		return
	}

	h.fanOut(r.Context(), hr, reason)
	writeJSON(w, http.StatusCreated, hr)
}

// fanOut tells the rest of the family about a new request over every
// channel they have enabled.
func (h *HelpHandler) fanOut(ctx context.Context, hr *model.HelpRequest, reason wellness.HelpReason) {
	requester, err := h.memberStore.GetByID(hr.RequesterID)
	if err != nil || requester == nil {
		h.logger.Error("lookup requester", "member_id", hr.RequesterID, "error", err)
		return
	}
	who := requester.Name
	if hr.Anonymous {
		who = "Someone"
	}

	public := *hr
	redact(&public, 0)
	h.hub.BroadcastExcept(websocket.NewEvent(websocket.EntityHelpRequest, "created", hr.ID, public), hr.RequesterID)

	devices := h.notifier.NotifyFamily(hr.RequesterID, push.KindHelpRequest, push.Payload{
		Title: fmt.Sprintf("%s could use some support", who),
		Body:  fmt.Sprintf("%s: %s", reason.Label, hr.Message),
		URL:   "/help",
		Tag:   fmt.Sprintf("help-%d", hr.ID),
	})

	emailed := h.emailFamily(hr.RequesterID, func(s model.UserSettings) bool { return s.EmailNotifications }, func(to string) error {
		return h.emailClient.SendHelpRequest(ctx, to, requester.Name, reason.Label, hr.Message, hr.Anonymous)
	})

	activity, err := h.activityStore.Add(nil, model.ActivityHelp, fmt.Sprintf("%s asked the family for support", who))
	if err != nil {
		h.logger.Error("add help activity", "error", err)
	} else {
		h.hub.Broadcast(websocket.NewEvent(websocket.EntityActivity, "created", activity.ID, activity))
	}
	h.logger.Info("help request sent", "id", hr.ID, "devices", devices, "emailed", emailed)
}

// emailFamily sends to every linked user except the one on excludeMemberID
// whose settings pass want. It returns the number of emails sent.
func (h *HelpHandler) emailFamily(excludeMemberID int64, want func(model.UserSettings) bool, send func(to string) error) int {
	if !h.emailClient.Configured() {
		return 0
	}
	users, err := h.userStore.List()
	if err != nil {
		h.logger.Error("list users for email", "error", err)
		return 0
	}
	sent := 0
	for _, u := range users {
		if u.MemberID == nil || *u.MemberID == excludeMemberID {
			continue
		}
		s, err := h.settingsStore.Get(u.ID)
		if err != nil {
			h.logger.Error("load settings", "user_id", u.ID, "error", err)
			continue
		}
		if !want(s) {
			continue
		}
		if err := send(u.Email); err != nil {
			h.logger.Error("send email", "user_id", u.ID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Respond handles POST /api/help-requests/{id}/respond. The first responder
// moves the request to responded; later calls return it unchanged.
func (h *HelpHandler) Respond(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.helpStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get help request", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "help request not found")
		return
	}
	if existing.RequesterID == memberID {
		writeError(w, http.StatusBadRequest, "you cannot respond to your own request")
		return
	}

	hr, err := h.helpStore.Respond(id, memberID)
	if errors.Is(err, wellness.ErrAlreadyInState) {
		redact(hr, memberID)
		writeJSON(w, http.StatusOK, hr)
		return
	}
	if err != nil {
		writeStoreError(w, h.logger, "respond to help request", err)
		return
	}
	if hr == nil {
		writeError(w, http.StatusNotFound, "help request not found")
		return
	}

	responder, err := h.memberStore.GetByID(memberID)
	if err == nil && responder != nil {
		h.hub.SendToMembers(websocket.NewEvent(websocket.EntityHelpRequest, "responded", hr.ID, map[string]any{
			"responder": responder.Name,
		}), hr.RequesterID)
		h.notifier.NotifyMember(hr.RequesterID, push.KindHelpRequest, push.Payload{
			Title: fmt.Sprintf("%s is here for you", responder.Name),
			Body:  "Someone responded to your request for support.",
			URL:   "/help",
			Tag:   fmt.Sprintf("help-%d", hr.ID),
		})
	}

	redact(hr, memberID)
	writeJSON(w, http.StatusOK, hr)
}

// Options handles GET /api/help/options.
func (h *HelpHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"reasons":         wellness.HelpReasons(),
		"contacts":        wellness.Contacts(),
		"default_message": wellness.DefaultHelpMessage,
	})
}

// CrisisResources handles GET /api/crisis/resources.
func (h *HelpHandler) CrisisResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wellness.Resources())
}

// CrisisAlert handles POST /api/crisis/alert. The alert goes to every
// other family member at once: live, by push and by email.
func (h *HelpHandler) CrisisAlert(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if len(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "message is too long")
		return
	}

	member, err := h.memberStore.GetByID(memberID)
	if err != nil {
		writeStoreError(w, h.logger, "get family member", err)
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	h.hub.BroadcastExcept(websocket.NewEvent(websocket.EntityCrisis, "alert", member.ID, map[string]string{
		"member":  member.Name,
		"message": req.Message,
	}), member.ID)

	body := req.Message
	if body == "" {
		body = "Please reach out right away."
	}
	devices := h.notifier.NotifyFamily(member.ID, push.KindCrisis, push.Payload{
		Title:  fmt.Sprintf("%s needs help now", member.Name),
		Body:   body,
		URL:    "/crisis",
		Tag:    "crisis",
		Urgent: true,
	})

	var contacts []string
	for _, c := range wellness.Resources().EmergencyContacts {
		contacts = append(contacts, fmt.Sprintf("%s: %s", c.Name, c.Number))
	}
	emailed := h.emailFamily(member.ID, func(s model.UserSettings) bool { return s.CrisisAlerts }, func(to string) error {
		return h.emailClient.SendCrisisAlert(r.Context(), to, member.Name, req.Message, contacts)
	})

	h.logger.Warn("crisis alert", "member_id", member.ID, "devices", devices, "emailed", emailed)
	writeJSON(w, http.StatusAccepted, map[string]int{
		"devices_notified": devices,
		"emails_sent":      emailed,
	})
}
