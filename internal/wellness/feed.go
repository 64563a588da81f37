package wellness

import (
	"slices"

	"github.com/dukerupert/famwell/internal/model"
)

// FeedSize is the number of activities shown on the dashboard.
const FeedSize = 5

// PrependActivity returns a new feed with item at the head, truncated to limit.
func PrependActivity(feed []model.Activity, item model.Activity, limit int) []model.Activity {
	out := make([]model.Activity, 0, min(len(feed)+1, max(limit, 0)))
	if limit <= 0 {
		return out
	}
	out = append(out, item)
	for _, a := range feed {
		if len(out) == limit {
			break
		}
		out = append(out, a)
	}
	return out
}

// ToggleReaction removes memberID's vote for emoji if present, otherwise adds
// it exactly once. Groups left with no votes are dropped. The input is not modified.
func ToggleReaction(groups []model.ReactionGroup, emoji string, memberID int64) (out []model.ReactionGroup, added bool) {
	out = make([]model.ReactionGroup, 0, len(groups)+1)
	found := false
	for _, g := range groups {
		if g.Emoji != emoji {
			out = append(out, copyGroup(g))
			continue
		}
		found = true
		g = copyGroup(g)
		if i := slices.Index(g.Members, memberID); i >= 0 {
			g.Members = slices.Delete(g.Members, i, i+1)
		} else {
			g.Members = append(g.Members, memberID)
			added = true
		}
		g.Count = len(g.Members)
		if g.Count > 0 {
			out = append(out, g)
		}
	}
	if !found {
		out = append(out, model.ReactionGroup{Emoji: emoji, Count: 1, Members: []int64{memberID}})
		added = true
	}
	return out, added
}

func copyGroup(g model.ReactionGroup) model.ReactionGroup {
	g.Members = slices.Clone(g.Members)
	return g
}
