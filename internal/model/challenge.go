package model

import "time"

type Challenge struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	Target      int        `json:"target"`
	Points      int        `json:"points"`
	EndsAt      *time.Time `json:"ends_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ChallengeProgress is one member's standing in a challenge.
type ChallengeProgress struct {
	ChallengeID int64      `json:"challenge_id"`
	MemberID    int64      `json:"member_id"`
	Progress    int        `json:"progress"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PointEvent struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Activity  string    `json:"activity"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}
