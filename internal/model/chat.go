package model

import "time"

// Reaction targets.
const (
	TargetMessage = "message"
	TargetJournal = "journal"
)

type ChatMessage struct {
	ID        int64           `json:"id"`
	SenderID  int64           `json:"sender_id"`
	Content   string          `json:"content"`
	Sentiment string          `json:"sentiment"`
	Reactions []ReactionGroup `json:"reactions"`
	CreatedAt time.Time       `json:"created_at"`
}

// ReactionGroup is every vote for one emoji on one target.
type ReactionGroup struct {
	Emoji   string  `json:"emoji"`
	Count   int     `json:"count"`
	Members []int64 `json:"members"`
}
