package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
)

var challengeKinds = []string{"weekly", "streak", "social", "daily"}

const (
	maxChallengeTarget = 1000
	maxChallengePoints = 1000
	maxProgressDelta   = 100
)

// WellnessHandler serves challenges, points and the leaderboard.
type WellnessHandler struct {
	challengeStore *store.ChallengeStore
	memberStore    *store.FamilyMemberStore
	pointStore     *store.PointStore
	checkInStore   *store.CheckInStore
	activityStore  *store.ActivityStore
	hub            *websocket.Hub
	logger         *slog.Logger
	now            func() time.Time
}

func NewWellnessHandler(
	cs *store.ChallengeStore,
	ms *store.FamilyMemberStore,
	ps *store.PointStore,
	cis *store.CheckInStore,
	as *store.ActivityStore,
	hub *websocket.Hub,
	logger *slog.Logger,
) *WellnessHandler {
	return &WellnessHandler{
		challengeStore: cs,
		memberStore:    ms,
		pointStore:     ps,
		checkInStore:   cis,
		activityStore:  as,
		hub:            hub,
		logger:         logger,
		now:            time.Now,
	}
}

type challengeView struct {
	model.Challenge
	Progress     model.ChallengeProgress   `json:"progress"`
	Participants []model.ChallengeProgress `json:"participants"`
}

// ListChallenges handles GET /api/challenges. Progress is the viewer's own.
func (h *WellnessHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	challenges, err := h.challengeStore.List()
	if err != nil {
		writeStoreError(w, h.logger, "list challenges", err)
		return
	}

	out := make([]challengeView, 0, len(challenges))
	for _, c := range challenges {
		view, err := h.view(c, memberID)
		if err != nil {
			writeStoreError(w, h.logger, "load challenge progress", err)
			return
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *WellnessHandler) view(c model.Challenge, memberID int64) (challengeView, error) {
	participants, err := h.challengeStore.ListProgress(c.ID)
	if err != nil {
		return challengeView{}, err
	}
	v := challengeView{
		Challenge:    c,
		Progress:     model.ChallengeProgress{ChallengeID: c.ID, MemberID: memberID, Status: wellness.ChallengeInProgress},
		Participants: emptyIfNil(participants),
	}
	for _, p := range participants {
		if p.MemberID == memberID {
			v.Progress = p
		}
	}
	return v, nil
}

// CreateChallenge handles POST /api/challenges.
func (h *WellnessHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Kind        string     `json:"kind"`
		Target      int        `json:"target"`
		Points      int        `json:"points"`
		EndsAt      *time.Time `json:"ends_at"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Kind = strings.TrimSpace(req.Kind)
	if req.Kind == "" {
		req.Kind = "weekly"
	}

	var verr error
	switch {
	case req.Title == "":
		verr = model.Required("title", req.Title)
	case !slices.Contains(challengeKinds, req.Kind):
		verr = &model.ValidationError{Field: "kind", Reason: "must be one of weekly, streak, social, daily"}
	default:
		if verr = model.InRange("target", req.Target, 1, maxChallengeTarget); verr == nil {
			verr = model.InRange("points", req.Points, 0, maxChallengePoints)
		}
	}
	if verr == nil && req.EndsAt != nil && !req.EndsAt.After(h.now()) {
		verr = &model.ValidationError{Field: "ends_at", Reason: "must be in the future"}
	}
	if verr != nil {
		writeStoreError(w, h.logger, "create challenge", verr)
		return
	}

	exists, err := h.challengeStore.TitleExists(req.Title)
	if err != nil {
		writeStoreError(w, h.logger, "check title", err)
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a challenge with that title already exists")
		return
	}

	var endsAt *time.Time
	if req.EndsAt != nil {
		t := req.EndsAt.UTC()
		endsAt = &t
	}
	c, err := h.challengeStore.Create(req.Title, req.Description, req.Kind, req.Target, req.Points, endsAt)
	if err != nil {
		writeStoreError(w, h.logger, "create challenge", err)
		return
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityChallenge, "created", c.ID, c))
	writeJSON(w, http.StatusCreated, c)
}

// AddProgress handles POST /api/challenges/{id}/progress. Reaching the
// target completes the challenge once; later progress returns the
// completed record unchanged.
func (h *WellnessHandler) AddProgress(w http.ResponseWriter, r *http.Request) {
	memberID := auth.MemberID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Delta *int `json:"delta"`
	}
	if !decode(w, r, &req) {
		return
	}
	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}
	if err := model.InRange("delta", delta, -maxProgressDelta, maxProgressDelta); err != nil {
		writeStoreError(w, h.logger, "record progress", err)
		return
	}

	c, err := h.challengeStore.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, "get challenge", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}
	p, completed, err := h.challengeStore.AddProgress(id, memberID, delta)
	if errors.Is(err, wellness.ErrAlreadyInState) {
		writeJSON(w, http.StatusOK, p)
		return
	}
	if err != nil {
		writeStoreError(w, h.logger, "record progress", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityChallenge, "progress", c.ID, p))
	if completed {
		h.announceCompletion(c, memberID)
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *WellnessHandler) announceCompletion(c *model.Challenge, memberID int64) {
	member, err := h.memberStore.GetByID(memberID)
	if err != nil || member == nil {
		h.logger.Error("lookup challenge member", "member_id", memberID, "error", err)
		return
	}
	summary := fmt.Sprintf("%s completed the %q challenge (+%d points)", member.Name, c.Title, c.Points)
	activity, err := h.activityStore.Add(&memberID, model.ActivityChallenge, summary)
	if err != nil {
		h.logger.Error("add challenge activity", "error", err)
		return
	}
	h.hub.Broadcast(websocket.NewEvent(websocket.EntityActivity, "created", activity.ID, activity))
}

type leaderboardEntry struct {
	MemberID     int64    `json:"member_id"`
	Name         string   `json:"name"`
	Avatar       string   `json:"avatar"`
	Points       int      `json:"points"`
	Level        int      `json:"level"`
	WeeklyPoints int      `json:"weekly_points"`
	WeeklyGoal   int      `json:"weekly_goal"`
	Streak       int      `json:"streak"`
	Badges       []string `json:"badges"`
	Rank         int      `json:"rank"`
}

// Leaderboard handles GET /api/leaderboard, highest points first.
func (h *WellnessHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberStore.List()
	if err != nil {
		writeStoreError(w, h.logger, "list family members", err)
		return
	}

	now := h.now()
	weekStart := startOfWeek(now)
	out := make([]leaderboardEntry, 0, len(members))
	for _, m := range members {
		stats, err := h.pointStore.Stats(m.ID)
		if err != nil {
			writeStoreError(w, h.logger, "load member stats", err)
			return
		}
		days, err := h.checkInStore.Times(m.ID, now.AddDate(-1, 0, 0))
		if err != nil {
			writeStoreError(w, h.logger, "load check-ins", err)
			return
		}
		stats.CheckInStreak = wellness.Streak(days, now)

		weekly, err := h.pointStore.TotalSince(m.ID, weekStart)
		if err != nil {
			writeStoreError(w, h.logger, "load weekly points", err)
			return
		}
		out = append(out, leaderboardEntry{
			MemberID:     m.ID,
			Name:         m.Name,
			Avatar:       m.Avatar,
			Points:       stats.Points,
			Level:        wellness.Level(stats.Points),
			WeeklyPoints: weekly,
			WeeklyGoal:   m.WeeklyGoal,
			Streak:       stats.CheckInStreak,
			Badges:       emptyIfNil(wellness.EarnedBadges(stats)),
		})
	}

	slices.SortStableFunc(out, func(a, b leaderboardEntry) int { return b.Points - a.Points })
	for i := range out {
		out[i].Rank = i + 1
	}
	writeJSON(w, http.StatusOK, out)
}

// PointActivities handles GET /api/points/activities: the point table and
// the badge catalog.
func (h *WellnessHandler) PointActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"activities":       wellness.PointRules(),
		"badges":           wellness.Badges(),
		"points_per_level": wellness.PointsPerLevel,
	})
}

// startOfWeek returns local midnight of the Monday on or before t.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
