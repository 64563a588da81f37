package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/push"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
)

const (
	maxNoteLen       = 1000
	defaultListLimit = 30
	maxListLimit     = 200
)

type CheckInHandler struct {
	checkInStore  *store.CheckInStore
	activityStore *store.ActivityStore
	settingsStore *store.SettingsStore
	notifier      *push.Notifier
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewCheckInHandler(cs *store.CheckInStore, as *store.ActivityStore, ss *store.SettingsStore, notifier *push.Notifier, hub *websocket.Hub, logger *slog.Logger) *CheckInHandler {
	return &CheckInHandler{
		checkInStore:  cs,
		activityStore: as,
		settingsStore: ss,
		notifier:      notifier,
		hub:           hub,
		logger:        logger,
	}
}

type checkInRequest struct {
	Mood   string `json:"mood"`
	Note   string `json:"note"`
	Shared *bool  `json:"shared"`
}

type checkInResponse struct {
	*store.CheckInResult
	Activities []model.Activity `json:"activities"`
}

// Create handles POST /api/checkins. A shared check-in puts one entry at
// the head of the family feed; the member's draft is cleared either way.
// An unshared check-in is announced to its author only, and members the
// author hides their mood from never receive it.
func (h *CheckInHandler) Create(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	var req checkInRequest
	if !decode(w, r, &req) {
		return
	}
	req.Note = strings.TrimSpace(req.Note)
	if strings.TrimSpace(req.Mood) == "" {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}
	mood, ok := wellness.LookupMood(req.Mood)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown mood")
		return
	}
	if len(req.Note) > maxNoteLen {
		writeError(w, http.StatusBadRequest, "note is too long")
		return
	}
	shared := true
	if req.Shared != nil {
		shared = *req.Shared
	}

	mask, err := loadMoodMask(h.settingsStore)
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return
	}
	feed, err := h.activityStore.ListRecent(feedScan)
	if err != nil {
		writeStoreError(w, h.logger, "list activities", err)
		return
	}
	feed = mask.activities(feed, memberID, feedCap)

	res, err := h.checkInStore.Apply(memberID, mood, req.Note, shared)
	if err != nil {
		writeStoreError(w, h.logger, "record check-in", err)
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	allowed := mask.allows(memberID)
	created := websocket.NewEvent(websocket.EntityCheckIn, "created", res.CheckIn.ID, res.CheckIn)
	if res.CheckIn.Shared {
		h.hub.SendWhere(created, allowed)
	} else {
		h.hub.SendToMembers(created, memberID)
	}
	mask.announce(h.hub, "updated", *res.Member)
	if res.Activity != nil {
		feed = wellness.PrependActivity(feed, *res.Activity, feedCap)
		h.hub.SendWhere(websocket.NewEvent(websocket.EntityActivity, "created", res.Activity.ID, res.Activity), allowed)
		h.notifier.NotifyFamilyWhere(memberID, allowed, push.KindActivity, push.Payload{
			Title: fmt.Sprintf("%s checked in", res.Member.Name),
			Body:  fmt.Sprintf("Feeling %s %s", mood.Label, mood.Emoji),
			URL:   "/dashboard",
			Tag:   "checkin",
		})
	}

	writeJSON(w, http.StatusCreated, checkInResponse{CheckInResult: res, Activities: emptyIfNil(feed)})
}

// List handles GET /api/checkins for the signed-in member.
func (h *CheckInHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	checkIns, err := h.checkInStore.ListByMember(auth.MemberID(r.Context()), limit)
	if err != nil {
		writeStoreError(w, h.logger, "list check-ins", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(checkIns))
}

// GetDraft handles GET /api/checkins/draft.
func (h *CheckInHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.checkInStore.GetDraft(auth.MemberID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "get draft", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// SaveDraft handles PUT /api/checkins/draft. The mood may be empty while
// the member is still choosing.
func (h *CheckInHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mood string `json:"mood"`
		Note string `json:"note"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Mood = strings.TrimSpace(req.Mood)
	if req.Mood != "" {
		mood, ok := wellness.LookupMood(req.Mood)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown mood")
			return
		}
		req.Mood = mood.Label
	}
	if len(req.Note) > maxNoteLen {
		writeError(w, http.StatusBadRequest, "note is too long")
		return
	}

	draft, err := h.checkInStore.SaveDraft(auth.MemberID(r.Context()), req.Mood, req.Note)
	if err != nil {
		writeStoreError(w, h.logger, "save draft", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// Moods handles GET /api/moods.
func (h *CheckInHandler) Moods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wellness.Moods())
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return min(n, maxListLimit), nil
}
