package wellness

import (
	"fmt"
	"strings"

	"github.com/dukerupert/famwell/internal/model"
)

const (
	NudgeCheckIn        = "check-in"
	NudgeConnection     = "connection"
	NudgeAppreciation   = "appreciation"
	NudgeFamilyActivity = "family-activity"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// NudgeCandidate is a nudge proposed by the rule engine before it is stored.
type NudgeCandidate struct {
	Type           string
	Priority       string
	Title          string
	Description    string
	Reason         string
	TargetMemberID *int64
	Suggestions    []string
	Confidence     int
}

// Key identifies a candidate for de-duplication against pending nudges.
func (c NudgeCandidate) Key() string {
	return NudgeKey(c.Type, c.TargetMemberID)
}

// ForOwner converts the candidate into a pending nudge owned by ownerID.
func (c NudgeCandidate) ForOwner(ownerID int64) model.Nudge {
	return model.Nudge{
		Type:           c.Type,
		Priority:       c.Priority,
		Title:          c.Title,
		Description:    c.Description,
		Reason:         c.Reason,
		OwnerMemberID:  ownerID,
		TargetMemberID: c.TargetMemberID,
		Suggestions:    c.Suggestions,
		Confidence:     c.Confidence,
		Status:         NudgeStatusPending,
	}
}

// NudgeKey builds the de-duplication key for a nudge type and target.
func NudgeKey(nudgeType string, target *int64) string {
	if target == nil {
		return nudgeType + ":family"
	}
	return fmt.Sprintf("%s:%d", nudgeType, *target)
}

const (
	appreciationScore   = 85
	familyActivityScore = 60
)

// SuggestNudges applies the nudge rules for the member ownerID. Members with
// no mood yet are skipped by the mood rules.
func SuggestNudges(ownerID int64, members []model.FamilyMember, edges []model.Relationship) []NudgeCandidate {
	byID := make(map[int64]model.FamilyMember, len(members))
	var scores []int
	for _, m := range members {
		byID[m.ID] = m
		if m.Mood != "" {
			scores = append(scores, m.MoodScore)
		}
	}

	var out []NudgeCandidate
	for _, m := range members {
		if m.ID == ownerID || m.Mood == "" {
			continue
		}
		if ValenceOf(m.Mood) == ValenceNegative {
			out = append(out, checkInNudge(m))
		}
	}

	for _, e := range edges {
		if !e.Involves(ownerID) {
			continue
		}
		h := EdgeHealth(e.Strength)
		if h != HealthModerate && h != HealthAtRisk {
			continue
		}
		otherID := e.MemberA
		if otherID == ownerID {
			otherID = e.MemberB
		}
		if other, ok := byID[otherID]; ok {
			out = append(out, connectionNudge(other, e.Strength))
		}
	}

	for _, m := range members {
		if m.ID == ownerID || m.Mood == "" {
			continue
		}
		if m.MoodScore >= appreciationScore {
			out = append(out, appreciationNudge(m))
		}
	}

	if avg, ok := Aggregate(scores); ok && avg < familyActivityScore {
		out = append(out, familyActivityNudge(avg))
	}
	return out
}

func memberRef(id int64) *int64 {
	return &id
}

func checkInNudge(m model.FamilyMember) NudgeCandidate {
	mood := lowerMood(m.Mood)
	return NudgeCandidate{
		Type:           NudgeCheckIn,
		Priority:       PriorityHigh,
		Title:          "Check on " + m.Name,
		Description:    fmt.Sprintf("%s marked themselves as %s.", m.Name, mood),
		Reason:         fmt.Sprintf("Latest check-in reports a %s mood (score %d)", mood, m.MoodScore),
		TargetMemberID: memberRef(m.ID),
		Suggestions: []string{
			fmt.Sprintf("Hey %s, how are you feeling? Want to talk?", m.Name),
			fmt.Sprintf("I noticed you seemed a bit %s earlier. I'm here if you need me.", mood),
			"Would you like to do something together to help you feel better?",
		},
		Confidence: Clamp(120 - m.MoodScore),
	}
}

func connectionNudge(other model.FamilyMember, strength int) NudgeCandidate {
	return NudgeCandidate{
		Type:           NudgeConnection,
		Priority:       PriorityMedium,
		Title:          "Strengthen bond with " + other.Name,
		Description:    fmt.Sprintf("Your connection with %s is at %d%%.", other.Name, strength),
		Reason:         "Connection strength is below the healthy range",
		TargetMemberID: memberRef(other.ID),
		Suggestions: []string{
			fmt.Sprintf("Hey %s, want to grab coffee and catch up?", other.Name),
			"I miss our conversations. Free for a walk later?",
			"How about we watch that show we started together?",
		},
		Confidence: Clamp(105 - strength/2),
	}
}

func appreciationNudge(m model.FamilyMember) NudgeCandidate {
	return NudgeCandidate{
		Type:           NudgeAppreciation,
		Priority:       PriorityLow,
		Title:          fmt.Sprintf("Appreciate %s's efforts", m.Name),
		Description:    fmt.Sprintf("%s has been consistently positive lately.", m.Name),
		Reason:         fmt.Sprintf("Mood score of %d is in the top range", m.MoodScore),
		TargetMemberID: memberRef(m.ID),
		Suggestions: []string{
			fmt.Sprintf("%s, I really appreciate how positive you've been lately!", m.Name),
			"Thank you for being such a bright light in our family this week.",
			"Your good energy has been noticed and appreciated!",
		},
		Confidence: Clamp(m.MoodScore + 5),
	}
}

func familyActivityNudge(avg int) NudgeCandidate {
	return NudgeCandidate{
		Type:        NudgeFamilyActivity,
		Priority:    PriorityMedium,
		Title:       "Plan family bonding time",
		Description: fmt.Sprintf("The family wellness score is %d.", avg),
		Reason:      "Family score is below the healthy range",
		Suggestions: []string{
			"How about a family game night this weekend?",
			"Should we plan a family outing together?",
			"Let's cook dinner together tonight!",
		},
		Confidence: Clamp(120 - avg),
	}
}

func lowerMood(label string) string {
	if m, ok := LookupMood(label); ok {
		label = m.Label
	}
	return strings.ToLower(label)
}
