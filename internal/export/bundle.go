package export

import (
	"fmt"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
)

// Bundle is everything FamWell holds about one user.
type Bundle struct {
	ExportedAt   time.Time            `json:"exported_at"`
	Profile      model.Profile        `json:"profile"`
	Settings     model.UserSettings   `json:"settings"`
	Member       *model.FamilyMember  `json:"member,omitempty"`
	CheckIns     []model.MoodCheckIn  `json:"checkins"`
	Journal      []model.JournalEntry `json:"journal"`
	Messages     []model.ChatMessage  `json:"messages"`
	Nudges       []model.Nudge        `json:"nudges"`
	HelpRequests []model.HelpRequest  `json:"help_requests"`
}

// Collector gathers a user's data from the stores.
type Collector struct {
	Members  *store.FamilyMemberStore
	CheckIns *store.CheckInStore
	Journal  *store.JournalStore
	Chat     *store.ChatStore
	Nudges   *store.NudgeStore
	Help     *store.HelpRequestStore
	Settings *store.SettingsStore
}

// maxCheckIns bounds the check-in history included in a bundle.
const maxCheckIns = 1000

// Collect builds the bundle for u. Users not linked to a roster member get
// only their profile and settings.
func (c *Collector) Collect(u *model.User) (*Bundle, error) {
	settings, err := c.Settings.Get(u.ID)
	if err != nil {
		return nil, fmt.Errorf("collect settings: %w", err)
	}
	b := &Bundle{
		ExportedAt:   time.Now().UTC(),
		Profile:      u.Profile(),
		Settings:     settings,
		CheckIns:     []model.MoodCheckIn{},
		Journal:      []model.JournalEntry{},
		Messages:     []model.ChatMessage{},
		Nudges:       []model.Nudge{},
		HelpRequests: []model.HelpRequest{},
	}
	if u.MemberID == nil {
		return b, nil
	}
	memberID := *u.MemberID

	if b.Member, err = c.Members.GetByID(memberID); err != nil {
		return nil, fmt.Errorf("collect member: %w", err)
	}
	if b.CheckIns, err = nonNil(c.CheckIns.ListByMember(memberID, maxCheckIns)); err != nil {
		return nil, fmt.Errorf("collect checkins: %w", err)
	}
	if b.Journal, err = nonNil(c.Journal.ListByAuthor(memberID)); err != nil {
		return nil, fmt.Errorf("collect journal: %w", err)
	}
	if b.Messages, err = nonNil(c.Chat.ListBySender(memberID)); err != nil {
		return nil, fmt.Errorf("collect messages: %w", err)
	}
	if b.Nudges, err = nonNil(c.Nudges.ListByOwner(memberID, "")); err != nil {
		return nil, fmt.Errorf("collect nudges: %w", err)
	}
	if b.HelpRequests, err = nonNil(c.Help.List(memberID)); err != nil {
		return nil, fmt.Errorf("collect help requests: %w", err)
	}
	return b, nil
}

func nonNil[T any](items []T, err error) ([]T, error) {
	if items == nil {
		items = []T{}
	}
	return items, err
}
