package model

import "time"

type JournalEntry struct {
	ID        int64           `json:"id"`
	AuthorID  int64           `json:"author_id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Mood      string          `json:"mood"`
	Tags      []string        `json:"tags"`
	IsPrivate bool            `json:"is_private"`
	Reactions []ReactionGroup `json:"reactions"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
