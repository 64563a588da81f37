package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
)

const maxMessageLen = 2000

type ChatHandler struct {
	chatStore  *store.ChatStore
	pointStore *store.PointStore
	reactor
}

func NewChatHandler(cs *store.ChatStore, ps *store.PointStore, rs *store.ReactionStore, hub *websocket.Hub, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatStore:  cs,
		pointStore: ps,
		reactor:    reactor{reactions: rs, hub: hub, logger: logger},
	}
}

// List handles GET /api/chat/messages, oldest first.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	messages, err := h.chatStore.ListRecent(limit)
	if err != nil {
		writeStoreError(w, h.logger, "list messages", err)
		return
	}

	ids := make([]int64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	err = h.attach(model.TargetMessage, ids, func(i int, groups []model.ReactionGroup) {
		messages[i].Reactions = groups
	})
	if err != nil {
		writeStoreError(w, h.logger, "load reactions", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(messages))
}

// Create handles POST /api/chat/messages. Encouraging messages earn the
// sender points.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	var req struct {
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "content is too long")
		return
	}

	sentiment := wellness.ClassifySentiment(req.Content)
	msg, err := h.chatStore.Create(memberID, req.Content, string(sentiment))
	if err != nil {
		writeStoreError(w, h.logger, "send message", err)
		return
	}
	msg.Reactions = []model.ReactionGroup{}

	if sentiment == wellness.SentimentSupportive || sentiment == wellness.SentimentPositive {
		if _, err := h.pointStore.Award(memberID, wellness.ActivityMessage, wellness.PointsFor(wellness.ActivityMessage)); err != nil {
			h.logger.Error("award message points", "member_id", memberID, "error", err)
		}
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityChat, "created", msg.ID, msg))
	writeJSON(w, http.StatusCreated, msg)
}

// React handles POST /api/chat/messages/{id}/reactions.
func (h *ChatHandler) React(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	msg, err := h.chatStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get message", err)
		return
	}
	if msg == nil {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	h.toggle(w, r, model.TargetMessage, msg.ID, auth.MemberID(r.Context()))
}

// Suggestions handles GET /api/chat/suggestions.
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wellness.ChatSuggestions())
}
