package model

import "time"

type Nudge struct {
	ID             int64      `json:"id"`
	Type           string     `json:"type"`
	Priority       string     `json:"priority"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Reason         string     `json:"reason"`
	OwnerMemberID  int64      `json:"owner_member_id"`
	TargetMemberID *int64     `json:"target_member_id"`
	Suggestions    []string   `json:"suggestions"`
	Confidence     int        `json:"confidence"`
	Status         string     `json:"status"`
	SentMessage    string     `json:"sent_message,omitempty"`
	SentAt         *time.Time `json:"sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
