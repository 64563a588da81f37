package handler

import (
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/websocket"
)

// feedScan is how far back the feed is read before dropping check-ins the
// viewer may not see.
const feedScan = 50

// moodMask applies every member's mood_visibility setting for one read.
// Members without a linked user have no settings and stay visible.
type moodMask map[int64]model.UserSettings

func loadMoodMask(ss *store.SettingsStore) (moodMask, error) {
	settings, err := ss.ByMember()
	if err != nil {
		return nil, err
	}
	return moodMask(settings), nil
}

// hidden reports whether memberID keeps their mood from viewer.
func (m moodMask) hidden(memberID, viewer int64) bool {
	if memberID == viewer {
		return false
	}
	s, ok := m[memberID]
	return ok && !s.MoodVisibleTo(viewer)
}

// member returns fm as viewer should see it.
func (m moodMask) member(fm model.FamilyMember, viewer int64) model.FamilyMember {
	if m.hidden(fm.ID, viewer) {
		fm.Mood = ""
		fm.MoodScore = 0
	}
	return fm
}

// members returns a redacted copy; the input is left untouched.
func (m moodMask) members(members []model.FamilyMember, viewer int64) []model.FamilyMember {
	out := make([]model.FamilyMember, len(members))
	for i, fm := range members {
		out[i] = m.member(fm, viewer)
	}
	return out
}

// activities drops check-in entries from members hiding their mood from
// viewer and keeps at most limit of the rest.
func (m moodMask) activities(acts []model.Activity, viewer int64, limit int) []model.Activity {
	out := make([]model.Activity, 0, min(len(acts), limit))
	for _, a := range acts {
		if len(out) == limit {
			break
		}
		if a.Kind == model.ActivityCheckIn && a.MemberID != nil && m.hidden(*a.MemberID, viewer) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// allows returns a predicate for hub and push fan-out of memberID's mood.
func (m moodMask) allows(memberID int64) func(viewer int64) bool {
	return func(viewer int64) bool { return !m.hidden(memberID, viewer) }
}

// announce sends a member event carrying the mood to viewers allowed to see
// it and a copy without it to everyone else.
func (m moodMask) announce(hub *websocket.Hub, action string, fm model.FamilyMember) {
	allowed := m.allows(fm.ID)
	hub.SendWhere(websocket.NewEvent(websocket.EntityMember, action, fm.ID, fm), allowed)

	redacted := fm
	redacted.Mood = ""
	redacted.MoodScore = 0
	hub.SendWhere(websocket.NewEvent(websocket.EntityMember, action, fm.ID, redacted), func(viewer int64) bool {
		return !allowed(viewer)
	})
}
