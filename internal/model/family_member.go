package model

import "time"

type FamilyMember struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Avatar       string     `json:"avatar"`
	Mood         string     `json:"mood"`
	MoodScore    int        `json:"mood_score"`
	Points       int        `json:"points"`
	WeeklyGoal   int        `json:"weekly_goal"`
	SortOrder    int        `json:"sort_order"`
	LastActiveAt *time.Time `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
