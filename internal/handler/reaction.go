package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
)

const maxEmojiRunes = 8

// reactor toggles emoji reactions for the journal and chat handlers.
type reactor struct {
	reactions *store.ReactionStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

type reactionResponse struct {
	TargetType string                `json:"target_type"`
	TargetID   int64                 `json:"target_id"`
	Emoji      string                `json:"emoji"`
	Added      bool                  `json:"added"`
	Reactions  []model.ReactionGroup `json:"reactions"`
}

// toggle decodes {emoji} and flips the member's vote on the target. The
// change is announced to audience, or to everyone when audience is empty.
func (rc reactor) toggle(w http.ResponseWriter, r *http.Request, targetType string, targetID, memberID int64, audience ...int64) {
	var req struct {
		Emoji string `json:"emoji"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Emoji = strings.TrimSpace(req.Emoji)
	if req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}
	if utf8.RuneCountInString(req.Emoji) > maxEmojiRunes {
		writeError(w, http.StatusBadRequest, "emoji is too long")
		return
	}

	before, err := rc.reactions.Groups(targetType, targetID)
	if err != nil {
		writeStoreError(w, rc.logger, "load reactions", err)
		return
	}
	groups, want := wellness.ToggleReaction(before, req.Emoji, memberID)

	added, err := rc.reactions.Toggle(targetType, targetID, req.Emoji, memberID)
	if err != nil {
		writeStoreError(w, rc.logger, "toggle reaction", err)
		return
	}
	if added != want {
		// Someone else changed the target in between; report what is stored.
		if groups, err = rc.reactions.Groups(targetType, targetID); err != nil {
			writeStoreError(w, rc.logger, "load reactions", err)
			return
		}
	}

	resp := reactionResponse{
		TargetType: targetType,
		TargetID:   targetID,
		Emoji:      req.Emoji,
		Added:      added,
		Reactions:  emptyIfNil(groups),
	}
	ev := websocket.NewEvent(websocket.EntityReaction, "toggled", targetID, resp)
	if len(audience) > 0 {
		rc.hub.SendToMembers(ev, audience...)
	} else {
		rc.hub.Broadcast(ev)
	}
	writeJSON(w, http.StatusOK, resp)
}

// attach fills in the reaction groups of each item.
func (rc reactor) attach(targetType string, ids []int64, set func(i int, groups []model.ReactionGroup)) error {
	for i, id := range ids {
		groups, err := rc.reactions.Groups(targetType, id)
		if err != nil {
			return err
		}
		set(i, emptyIfNil(groups))
	}
	return nil
}
