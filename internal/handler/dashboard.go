package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
)

// feedCap is the number of activities shown on the dashboard.
const feedCap = 5

type DashboardHandler struct {
	memberStore   *store.FamilyMemberStore
	activityStore *store.ActivityStore
	settingsStore *store.SettingsStore
	logger        *slog.Logger
	now           func() time.Time
}

func NewDashboardHandler(ms *store.FamilyMemberStore, as *store.ActivityStore, ss *store.SettingsStore, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		memberStore:   ms,
		activityStore: as,
		settingsStore: ss,
		logger:        logger,
		now:           time.Now,
	}
}

// rosterEntry is a member as seen by the viewer. Members who hide their mood
// from the viewer have Mood and MoodScore blanked.
type rosterEntry struct {
	model.FamilyMember
	LastActive string `json:"last_active"`
	MoodHidden bool   `json:"mood_hidden"`
}

type dashboardResponse struct {
	Members     []rosterEntry     `json:"members"`
	FamilyScore *int              `json:"family_score"`
	Category    wellness.Category `json:"category,omitempty"`
	Activities  []model.Activity  `json:"activities"`
}

// Get handles GET /api/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer := auth.MemberID(r.Context())

	members, err := h.memberStore.List()
	if err != nil {
		writeStoreError(w, h.logger, "list family members", err)
		return
	}
	mask, err := loadMoodMask(h.settingsStore)
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return
	}
	activities, err := h.activityStore.ListRecent(feedScan)
	if err != nil {
		writeStoreError(w, h.logger, "list activities", err)
		return
	}

	now := h.now()
	resp := dashboardResponse{
		Members:    make([]rosterEntry, 0, len(members)),
		Activities: mask.activities(activities, viewer, feedCap),
	}
	var scores []int
	for _, m := range members {
		entry := rosterEntry{
			FamilyMember: mask.member(m, viewer),
			LastActive:   lastActiveLabel(m.LastActiveAt, now),
			MoodHidden:   mask.hidden(m.ID, viewer),
		}
		if entry.Mood != "" {
			scores = append(scores, entry.MoodScore)
		}
		resp.Members = append(resp.Members, entry)
	}

	if score, ok := wellness.Aggregate(scores); ok {
		resp.FamilyScore = &score
		resp.Category = wellness.Categorize(score)
	}
	writeJSON(w, http.StatusOK, resp)
}

// lastActiveLabel renders a timestamp as "Just now", "N min ago", "N hours
// ago" or "N days ago".
func lastActiveLabel(t *time.Time, now time.Time) string {
	if t == nil {
		return "Never"
	}
	d := now.Sub(*t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
