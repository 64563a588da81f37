package model

import "time"

type MoodCheckIn struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Mood      string    `json:"mood"`
	Score     int       `json:"score"`
	Note      string    `json:"note"`
	Shared    bool      `json:"shared"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckInDraft is the unsubmitted mood selection and note for a member.
type CheckInDraft struct {
	MemberID  int64     `json:"member_id"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity kinds shown in the dashboard feed.
const (
	ActivityCheckIn   = "checkin"
	ActivityJournal   = "journal"
	ActivityNudge     = "nudge"
	ActivityChallenge = "challenge"
	ActivityHelp      = "help"
)

type Activity struct {
	ID        int64     `json:"id"`
	MemberID  *int64    `json:"member_id"`
	Kind      string    `json:"kind"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}
