// Package seed loads the demo family used by "try the demo" sign-in.
package seed

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
)

// DemoEmail is the sign-in of the demo parent.
const DemoEmail = "demo@famwell.app"

// ErrFamilyExists is returned when the roster already holds a real family.
var ErrFamilyExists = errors.New("family roster is not empty")

// Stores is the set of stores the seeder writes through.
type Stores struct {
	Members       *store.FamilyMemberStore
	Users         *store.UserStore
	Relationships *store.RelationshipStore
	CheckIns      *store.CheckInStore
	Journal       *store.JournalStore
	Chat          *store.ChatStore
	Reactions     *store.ReactionStore
	Nudges        *store.NudgeStore
	Challenges    *store.ChallengeStore
	Points        *store.PointStore
}

type demoMember struct {
	name, role, avatar, mood string
	points, weeklyGoal       int
}

var demoMembers = []demoMember{
	{"Sarah", "Mom", "👩‍💼", "Happy", 1250, 200},
	{"David", "Dad", "👨‍💼", "Tired", 750, 150},
	{"Emma", "Daughter", "👧", "Anxious", 980, 150},
	{"Jake", "Son", "👦", "Excited", 620, 120},
}

var demoEdges = []struct {
	a, b         string
	relationship string
	strength     int
	confidence   int
}{
	{"Sarah", "David", "Spouses", 85, 91},
	{"Sarah", "Emma", "Mother-Daughter", 72, 87},
	{"Sarah", "Jake", "Mother-Son", 78, 82},
	{"David", "Emma", "Father-Daughter", 65, 80},
	{"David", "Jake", "Father-Son", 88, 78},
	{"Emma", "Jake", "Siblings", 92, 94},
}

// Load seeds the demo family and returns the demo parent's user. When the
// demo family is already loaded it returns the existing demo user.
func Load(s Stores, logger *slog.Logger) (*model.User, error) {
	existing, err := s.Users.GetByEmail(DemoEmail)
	if err != nil {
		return nil, fmt.Errorf("lookup demo user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	n, err := s.Members.Count()
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if n > 0 {
		return nil, ErrFamilyExists
	}

	ids := make(map[string]int64, len(demoMembers))
	for _, dm := range demoMembers {
		m, err := s.Members.Create(dm.name, dm.role, dm.avatar)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", dm.name, err)
		}
		ids[dm.name] = m.ID
		if _, err := s.Members.Update(m.ID, dm.name, dm.role, dm.avatar, dm.weeklyGoal); err != nil {
			return nil, fmt.Errorf("set weekly goal for %s: %w", dm.name, err)
		}
		mood, _ := wellness.LookupMood(dm.mood)
		if err := s.Members.SetMood(m.ID, mood.Label, mood.Score); err != nil {
			return nil, fmt.Errorf("set mood for %s: %w", dm.name, err)
		}
		if _, err := s.CheckIns.Apply(m.ID, mood, "", true); err != nil {
			return nil, fmt.Errorf("check in %s: %w", dm.name, err)
		}
		if _, err := s.Points.Award(m.ID, "Earlier activity", dm.points); err != nil {
			return nil, fmt.Errorf("award points to %s: %w", dm.name, err)
		}
	}

	for _, e := range demoEdges {
		r, err := s.Relationships.Upsert(ids[e.a], ids[e.b], e.relationship, e.strength)
		if err != nil {
			return nil, fmt.Errorf("create edge %s-%s: %w", e.a, e.b, err)
		}
		if err := s.Relationships.SetConfidence(r.ID, e.confidence); err != nil {
			return nil, fmt.Errorf("set confidence %s-%s: %w", e.a, e.b, err)
		}
	}

	if err := seedJournal(s, ids); err != nil {
		return nil, err
	}
	if err := seedChat(s, ids); err != nil {
		return nil, err
	}
	if err := seedChallenges(s, ids); err != nil {
		return nil, err
	}

	sarah := ids["Sarah"]
	members, err := s.Members.List()
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	edges, err := s.Relationships.List()
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	for _, c := range wellness.SuggestNudges(sarah, members, edges) {
		if _, _, err := s.Nudges.CreatePending(c.ForOwner(sarah)); err != nil {
			return nil, fmt.Errorf("create nudge: %w", err)
		}
	}

	u, err := s.Users.Create(store.NewUser{
		Email:    DemoEmail,
		Name:     "Sarah",
		Role:     "Mom",
		Avatar:   "👩‍💼",
		Provider: model.ProviderDemo,
		MemberID: &sarah,
	})
	if err != nil {
		return nil, fmt.Errorf("create demo user: %w", err)
	}
	logger.Info("demo family loaded", "members", len(ids), "user_id", u.ID)
	return u, nil
}

func seedJournal(s Stores, ids map[string]int64) error {
	entries := []struct {
		in        store.JournalInput
		reactions map[string][]string
	}{
		{
			in: store.JournalInput{
				Title:   "Family Game Night",
				Content: "We had the best family game night tonight! Dad was so competitive during Monopoly and Jake kept making us all laugh with his silly voices.",
				Mood:    "Gratitude",
				Tags:    []string{"Gratitude", "Calm"},
			},
			reactions: map[string][]string{"😊": {"Sarah", "Jake"}, "❤️": {"David"}},
		},
		{
			in: store.JournalInput{
				Title:     "Feeling Overwhelmed",
				Content:   "Had a tough day today. So many assignments due this week and I'm feeling really stressed about keeping up. Maybe I should talk to Mom about getting some help with time management.",
				Mood:      "Stress",
				Tags:      []string{"Stress"},
				IsPrivate: true,
			},
		},
		{
			in: store.JournalInput{
				Title:   "A Great Day at School",
				Content: "Today was amazing! I got an A on my math test and made a new friend during lunch. We decided to start a mini book club together.",
				Mood:    "Hope",
				Tags:    []string{"Gratitude", "Hope"},
			},
			reactions: map[string][]string{"❤️": {"Sarah", "David", "Jake"}},
		},
	}
	for _, e := range entries {
		entry, err := s.Journal.Create(ids["Emma"], e.in)
		if err != nil {
			return fmt.Errorf("create journal entry: %w", err)
		}
		if err := react(s.Reactions, model.TargetJournal, entry.ID, e.reactions, ids); err != nil {
			return err
		}
	}
	return nil
}

func seedChat(s Stores, ids map[string]int64) error {
	messages := []struct {
		sender, content string
		reactions       map[string][]string
	}{
		{"Emma", "Had a really good day at school today! 😊", map[string][]string{"❤️": {"Sarah", "Jake"}}},
		{"Sarah", "That's wonderful to hear, Emma! What made it special?", nil},
		{"Emma", "I got an A on my math test and made a new friend during lunch", map[string][]string{"🎉": {"Sarah"}}},
		{"Jake", "Nice job sis! Math is tough", map[string][]string{"👏": {"Emma"}}},
		{"David", "Proud of you Emma! Let's celebrate with ice cream tonight", map[string][]string{"🍦": {"Emma", "Jake", "Sarah"}}},
	}
	for _, m := range messages {
		msg, err := s.Chat.Create(ids[m.sender], m.content, string(wellness.ClassifySentiment(m.content)))
		if err != nil {
			return fmt.Errorf("create chat message: %w", err)
		}
		if err := react(s.Reactions, model.TargetMessage, msg.ID, m.reactions, ids); err != nil {
			return err
		}
	}
	return nil
}

func seedChallenges(s Stores, ids map[string]int64) error {
	challenges := []struct {
		title, description, kind string
		target, points           int
		member                   string
		progress                 int
	}{
		{"Weekly Kindness Challenge", "Send 5 encouraging messages to family members", "weekly", 5, 50, "Sarah", 3},
		{"Daily Journal Streak", "Write in your journal for 7 consecutive days", "streak", 7, 75, "Emma", 5},
		{"Family Connection", "Have meaningful conversations with each family member", "social", 4, 100, "Sarah", 2},
		{"Mood Check-in Master", "Complete daily mood check-ins for a week", "daily", 7, 60, "Sarah", 7},
	}
	for _, c := range challenges {
		ch, err := s.Challenges.Create(c.title, c.description, c.kind, c.target, c.points, nil)
		if err != nil {
			return fmt.Errorf("create challenge %q: %w", c.title, err)
		}
		if _, _, err := s.Challenges.AddProgress(ch.ID, ids[c.member], c.progress); err != nil {
			return fmt.Errorf("seed progress for %q: %w", c.title, err)
		}
	}
	return nil
}

func react(reactions *store.ReactionStore, targetType string, targetID int64, byEmoji map[string][]string, ids map[string]int64) error {
	for emoji, names := range byEmoji {
		for _, name := range names {
			if _, err := reactions.Toggle(targetType, targetID, emoji, ids[name]); err != nil {
				return fmt.Errorf("seed reaction: %w", err)
			}
		}
	}
	return nil
}
