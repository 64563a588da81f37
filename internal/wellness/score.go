package wellness

import "math"

const (
	MinScore = 0
	MaxScore = 100
)

// Category buckets an aggregate or individual score for display.
type Category string

const (
	CategoryStrong         Category = "strong"
	CategoryGood           Category = "good"
	CategoryNeedsAttention Category = "needs_attention"
)

// Clamp bounds a score to [0, 100].
func Clamp(score int) int {
	switch {
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	}
	return score
}

// Aggregate returns the arithmetic mean of scores rounded half up and
// clamped to [0, 100]. It returns false when there are no scores.
func Aggregate(scores []int) (int, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sum := 0
	for _, s := range scores {
		sum += Clamp(s)
	}
	mean := float64(sum) / float64(len(scores))
	return Clamp(int(math.Floor(mean + 0.5))), true
}

// Categorize maps a score to its display category.
func Categorize(score int) Category {
	switch {
	case score >= 75:
		return CategoryStrong
	case score >= 50:
		return CategoryGood
	default:
		return CategoryNeedsAttention
	}
}

// Blend moves prev halfway toward target, rounding half up.
func Blend(prev, target int) int {
	sum := Clamp(prev) + Clamp(target)
	return Clamp((sum + 1) / 2)
}

// Points awarded per wellness activity.
const (
	ActivityCheckIn   = "Daily mood check-in"
	ActivityJournal   = "Journal entry"
	ActivityMessage   = "Send encouraging message"
	ActivityChallenge = "Complete family challenge"
	ActivityHelp      = "Help family member"
	ActivityGratitude = "Share gratitude"
)

type PointRule struct {
	Activity string `json:"action"`
	Points   int    `json:"points"`
}

var pointRules = []PointRule{
	{ActivityCheckIn, 10},
	{ActivityJournal, 15},
	{ActivityMessage, 20},
	{ActivityChallenge, 50},
	{ActivityHelp, 25},
	{ActivityGratitude, 15},
}

// PointRules lists the point table in display order.
func PointRules() []PointRule {
	out := make([]PointRule, len(pointRules))
	copy(out, pointRules)
	return out
}

// PointsFor returns the points for an activity, or 0 if unknown.
func PointsFor(activity string) int {
	for _, r := range pointRules {
		if r.Activity == activity {
			return r.Points
		}
	}
	return 0
}

// PointsPerLevel is the number of lifetime points per level.
const PointsPerLevel = 150

// Level derives a member's level from lifetime points.
func Level(points int) int {
	if points < 0 {
		return 0
	}
	return points / PointsPerLevel
}
