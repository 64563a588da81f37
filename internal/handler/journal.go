package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
)

const (
	maxTitleLen   = 200
	maxContentLen = 10000
)

type JournalHandler struct {
	journalStore  *store.JournalStore
	memberStore   *store.FamilyMemberStore
	activityStore *store.ActivityStore
	pointStore    *store.PointStore
	settingsStore *store.SettingsStore
	reactor
}

func NewJournalHandler(
	js *store.JournalStore,
	ms *store.FamilyMemberStore,
	as *store.ActivityStore,
	ps *store.PointStore,
	ss *store.SettingsStore,
	rs *store.ReactionStore,
	hub *websocket.Hub,
	logger *slog.Logger,
) *JournalHandler {
	return &JournalHandler{
		journalStore:  js,
		memberStore:   ms,
		activityStore: as,
		pointStore:    ps,
		settingsStore: ss,
		reactor:       reactor{reactions: rs, hub: hub, logger: logger},
	}
}

type journalRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Mood      string   `json:"mood"`
	Tags      []string `json:"tags"`
	IsPrivate *bool    `json:"is_private"`
}

// input validates the request. defaultPrivate applies when is_private is
// omitted.
func (req journalRequest) input(defaultPrivate bool) (store.JournalInput, error) {
	in := store.JournalInput{
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		IsPrivate: defaultPrivate,
	}
	if req.IsPrivate != nil {
		in.IsPrivate = *req.IsPrivate
	}
	if err := model.Required("title", in.Title); err != nil {
		return in, err
	}
	if err := model.Required("content", in.Content); err != nil {
		return in, err
	}
	if len(in.Title) > maxTitleLen {
		return in, &model.ValidationError{Field: "title", Reason: "is too long"}
	}
	if len(in.Content) > maxContentLen {
		return in, &model.ValidationError{Field: "content", Reason: "is too long"}
	}
	if mood := strings.TrimSpace(req.Mood); mood != "" {
		m, ok := wellness.LookupMood(mood)
		if !ok {
			return in, &model.ValidationError{Field: "mood", Reason: "is not a known mood"}
		}
		in.Mood = m.Label
	}
	seen := make(map[string]bool, len(req.Tags))
	for _, tag := range req.Tags {
		tag = strings.TrimSpace(tag)
		if !wellness.IsJournalTag(tag) {
			return in, &model.ValidationError{Field: "tags", Reason: fmt.Sprintf("%q is not a journal tag", tag)}
		}
		if !seen[tag] {
			seen[tag] = true
			in.Tags = append(in.Tags, tag)
		}
	}
	return in, nil
}

// List handles GET /api/journal. ?q= searches title and content; ?tag=
// keeps entries with that tag.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))
	if tag != "" && !wellness.IsJournalTag(tag) {
		writeError(w, http.StatusBadRequest, "unknown tag")
		return
	}

	entries, err := h.journalStore.List(store.JournalFilter{
		ViewerID: auth.MemberID(r.Context()),
		Query:    r.URL.Query().Get("q"),
		Tag:      tag,
	})
	if err != nil {
		writeStoreError(w, h.logger, "list journal entries", err)
		return
	}
	if !h.withReactions(w, entries) {
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(entries))
}

// Create handles POST /api/journal. Entries default to private when the
// author has journal sharing turned off.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	var req journalRequest
	if !decode(w, r, &req) {
		return
	}
	settings, err := h.settingsStore.Get(auth.UserID(r.Context()))
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return
	}
	in, err := req.input(!settings.JournalSharing)
	if err != nil {
		writeStoreError(w, h.logger, "create journal entry", err)
		return
	}

	entry, err := h.journalStore.Create(memberID, in)
	if err != nil {
		writeStoreError(w, h.logger, "create journal entry", err)
		return
	}
	entry.Reactions = []model.ReactionGroup{}

	if _, err := h.pointStore.Award(memberID, wellness.ActivityJournal, wellness.PointsFor(wellness.ActivityJournal)); err != nil {
		h.logger.Error("award journal points", "member_id", memberID, "error", err)
	}

	if !entry.IsPrivate {
		h.announce(memberID, entry)
		h.hub.Broadcast(websocket.NewEvent(websocket.EntityJournal, "created", entry.ID, entry))
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *JournalHandler) announce(memberID int64, entry *model.JournalEntry) {
	member, err := h.memberStore.GetByID(memberID)
	if err != nil || member == nil {
		h.logger.Error("lookup journal author", "member_id", memberID, "error", err)
		return
	}
	summary := fmt.Sprintf("%s shared a journal entry: %s", member.Name, entry.Title)
	activity, err := h.activityStore.Add(&memberID, model.ActivityJournal, summary)
	if err != nil {
		h.logger.Error("add journal activity", "error", err)
		return
	}
	h.hub.Broadcast(websocket.NewEvent(websocket.EntityActivity, "created", activity.ID, activity))
}

// Update handles PUT /api/journal/{id}. Only the author may edit.
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.ownEntry(w, r)
	if !ok {
		return
	}

	var req journalRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input(entry.IsPrivate)
	if err != nil {
		writeStoreError(w, h.logger, "update journal entry", err)
		return
	}

	updated, err := h.journalStore.Update(entry.ID, in)
	if err != nil {
		writeStoreError(w, h.logger, "update journal entry", err)
		return
	}
	if updated.Reactions, err = h.reactions.Groups(model.TargetJournal, updated.ID); err != nil {
		writeStoreError(w, h.logger, "load reactions", err)
		return
	}
	updated.Reactions = emptyIfNil(updated.Reactions)

	if !updated.IsPrivate || !entry.IsPrivate {
		h.hub.Broadcast(websocket.NewEvent(websocket.EntityJournal, "updated", updated.ID, nil))
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/journal/{id}. Only the author may delete.
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.ownEntry(w, r)
	if !ok {
		return
	}
	if err := h.journalStore.Delete(entry.ID); err != nil {
		writeStoreError(w, h.logger, "delete journal entry", err)
		return
	}
	if err := h.reactions.DeleteTarget(model.TargetJournal, entry.ID); err != nil {
		writeStoreError(w, h.logger, "delete journal reactions", err)
		return
	}
	if !entry.IsPrivate {
		h.hub.Broadcast(websocket.NewEvent(websocket.EntityJournal, "deleted", entry.ID, nil))
	}
	w.WriteHeader(http.StatusNoContent)
}

// React handles POST /api/journal/{id}/reactions.
func (h *JournalHandler) React(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())
	entry, ok := h.visibleEntry(w, r)
	if !ok {
		return
	}
	if entry.IsPrivate {
		h.toggle(w, r, model.TargetJournal, entry.ID, memberID, entry.AuthorID)
		return
	}
	h.toggle(w, r, model.TargetJournal, entry.ID, memberID)
}

// Prompts handles GET /api/journal/prompts.
func (h *JournalHandler) Prompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"prompts": wellness.JournalPrompts(),
		"tags":    wellness.JournalTags,
	})
}

// visibleEntry loads the {id} entry, answering 404 for entries that do not
// exist or are another member's private entry.
func (h *JournalHandler) visibleEntry(w http.ResponseWriter, r *http.Request) (*model.JournalEntry, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	entry, err := h.journalStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get journal entry", err)
		return nil, false
	}
	if entry == nil || (entry.IsPrivate && entry.AuthorID != auth.MemberID(r.Context())) {
		writeError(w, http.StatusNotFound, "journal entry not found")
		return nil, false
	}
	return entry, true
}

func (h *JournalHandler) ownEntry(w http.ResponseWriter, r *http.Request) (*model.JournalEntry, bool) {
	entry, ok := h.visibleEntry(w, r)
	if !ok {
		return nil, false
	}
	if entry.AuthorID != auth.MemberID(r.Context()) {
		writeError(w, http.StatusForbidden, "only the author can change this entry")
		return nil, false
	}
	return entry, true
}

func (h *JournalHandler) withReactions(w http.ResponseWriter, entries []model.JournalEntry) bool {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	err := h.attach(model.TargetJournal, ids, func(i int, groups []model.ReactionGroup) {
		entries[i].Reactions = groups
	})
	if err != nil {
		writeStoreError(w, h.logger, "load reactions", err)
		return false
	}
	return true
}
