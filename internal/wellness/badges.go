package wellness

import (
	"time"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// MemberStats are the counters badges are earned from.
type MemberStats struct {
	Points            int
	CheckIns          int
	JournalEntries    int
	SupportiveSent    int
	ReactionsReceived int
	HelpGiven         int
	CheckInStreak     int
}

type Badge struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Rarity      Rarity `json:"rarity"`
	earned      func(MemberStats) bool
}

var badges = []Badge{
	{"Empathizer", "Sent 50+ supportive messages", "💝", RarityRare, func(s MemberStats) bool { return s.SupportiveSent >= 50 }},
	{"Streak Keeper", "Maintained 30-day activity streak", "🔥", RarityEpic, func(s MemberStats) bool { return s.CheckInStreak >= 30 }},
	{"Kind Soul", "Received 100+ positive reactions", "😇", RarityRare, func(s MemberStats) bool { return s.ReactionsReceived >= 100 }},
	{"Journal Master", "Written 50+ journal entries", "📖", RarityRare, func(s MemberStats) bool { return s.JournalEntries >= 50 }},
	{"Mood Tracker", "Completed 100+ mood check-ins", "📊", RarityCommon, func(s MemberStats) bool { return s.CheckIns >= 100 }},
	{"Supporter", "Helped family members 25+ times", "🤝", RarityCommon, func(s MemberStats) bool { return s.HelpGiven >= 25 }},
	{"Check-in Champion", "Checked in every day for a week", "✅", RarityRare, func(s MemberStats) bool { return s.CheckInStreak >= 7 }},
	{"Rising Star", "Earned first 500 points", "⭐", RarityCommon, func(s MemberStats) bool { return s.Points >= 500 }},
}

// Badges returns the badge catalog.
func Badges() []Badge {
	out := make([]Badge, len(badges))
	copy(out, badges)
	return out
}

// EarnedBadges returns the names of the badges stats qualify for.
func EarnedBadges(stats MemberStats) []string {
	var names []string
	for _, b := range badges {
		if b.earned(stats) {
			names = append(names, b.Name)
		}
	}
	return names
}

// Streak counts consecutive calendar days with activity ending today or
// yesterday. days may be unordered and contain duplicates.
func Streak(days []time.Time, today time.Time) int {
	seen := make(map[time.Time]bool, len(days))
	for _, d := range days {
		seen[startOfDay(d.In(today.Location()))] = true
	}

	cursor := startOfDay(today)
	if !seen[cursor] {
		cursor = cursor.AddDate(0, 0, -1)
	}
	n := 0
	for seen[cursor] {
		n++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return n
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
