package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	"github.com/dukerupert/famwell/internal/websocket"
)

type GraphHandler struct {
	relationshipStore *store.RelationshipStore
	memberStore       *store.FamilyMemberStore
	settingsStore     *store.SettingsStore
	hub               *websocket.Hub
	logger            *slog.Logger

	simMu sync.Mutex
	sim   *wellness.Simulator
}

// NewGraphHandler returns the trust graph handler. sim drives the refresh
// action; a nil sim uses a randomly seeded one.
func NewGraphHandler(rs *store.RelationshipStore, ms *store.FamilyMemberStore, ss *store.SettingsStore, sim *wellness.Simulator, hub *websocket.Hub, logger *slog.Logger) *GraphHandler {
	if sim == nil {
		sim = wellness.NewSimulator(nil)
	}
	return &GraphHandler{
		relationshipStore: rs,
		memberStore:       ms,
		settingsStore:     ss,
		sim:               sim,
		hub:               hub,
		logger:            logger,
	}
}

type graphNode struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Avatar    string `json:"avatar"`
	Mood      string `json:"mood"`
	MoodScore int    `json:"mood_score"`
}

type graphEdge struct {
	model.Relationship
	Width float64 `json:"width"`
}

type graphStats struct {
	Connections     int `json:"connections"`
	AverageStrength int `json:"average_strength"`
	Strong          int `json:"strong"`
	AtRisk          int `json:"at_risk"`
}

type graphResponse struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
	Stats graphStats  `json:"stats"`
}

// Get handles GET /api/graph.
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	members, edges, ok := h.visible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildGraph(members, edges))
}

// Refresh handles POST /api/graph/refresh. Strengths move by simulated
// drift; this is demo data, not a measurement.
func (h *GraphHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.simMu.Lock()
	_, err := h.relationshipStore.Refresh(h.sim.Perturb)
	h.simMu.Unlock()
	if err != nil {
		writeStoreError(w, h.logger, "refresh graph", err)
		return
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityRelationship, "refreshed", 0, nil))

	members, edges, ok := h.visible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buildGraph(members, edges))
}

// UpsertEdge handles PUT /api/graph/edges.
func (h *GraphHandler) UpsertEdge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberA      int64  `json:"member_a"`
		MemberB      int64  `json:"member_b"`
		Strength     *int   `json:"strength"`
		Relationship string `json:"relationship"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Relationship = strings.TrimSpace(req.Relationship)

	if req.Strength == nil {
		writeError(w, http.StatusBadRequest, "strength is required")
		return
	}
	if err := model.InRange("strength", *req.Strength, wellness.MinScore, wellness.MaxScore); err != nil {
		writeStoreError(w, h.logger, "save relationship", err)
		return
	}
	if req.MemberA == req.MemberB {
		writeError(w, http.StatusBadRequest, "member_a and member_b must differ")
		return
	}
	for _, id := range []int64{req.MemberA, req.MemberB} {
		m, err := h.memberStore.GetByID(id)
		if err != nil {
			writeStoreError(w, h.logger, "get family member", err)
			return
		}
		if m == nil {
			writeError(w, http.StatusNotFound, "family member not found")
			return
		}
	}

	edge, err := h.relationshipStore.Upsert(req.MemberA, req.MemberB, req.Relationship, *req.Strength)
	if err != nil {
		writeStoreError(w, h.logger, "save relationship", err)
		return
	}

	h.hub.Broadcast(websocket.NewEvent(websocket.EntityRelationship, "updated", edge.ID, edge))
	writeJSON(w, http.StatusOK, graphEdge{Relationship: *edge, Width: wellness.EdgeWidth(edge.Strength)})
}

type pairView struct {
	ID                int64               `json:"id"`
	MemberA           graphNode           `json:"member_a"`
	MemberB           graphNode           `json:"member_b"`
	Relationship      string              `json:"relationship"`
	EmotionalDistance int                 `json:"emotional_distance"`
	Status            wellness.PairStatus `json:"status"`
	Trend             wellness.Trend      `json:"trend"`
	Confidence        int                 `json:"confidence"`
	Recommendations   []string            `json:"recommendations"`
	LastInteractionAt *time.Time          `json:"last_interaction_at"`
}

// Pairs handles GET /api/pairs. ?status=critical keeps pairs needing
// attention; any other status value filters on that status.
func (h *GraphHandler) Pairs(w http.ResponseWriter, r *http.Request) {
	filter := strings.TrimSpace(r.URL.Query().Get("status"))

	members, edges, ok := h.visible(w, r)
	if !ok {
		return
	}
	byID := make(map[int64]graphNode, len(members))
	for _, m := range members {
		byID[m.ID] = nodeFor(m)
	}

	pairs := []pairView{}
	for _, e := range edges {
		status := wellness.StatusForDistance(e.EmotionalDistance)
		switch {
		case filter == "":
		case filter == "critical":
			if !wellness.IsCritical(status) {
				continue
			}
		case filter != string(status):
			continue
		}
		pairs = append(pairs, pairView{
			ID:                e.ID,
			MemberA:           byID[e.MemberA],
			MemberB:           byID[e.MemberB],
			Relationship:      e.Relationship,
			EmotionalDistance: e.EmotionalDistance,
			Status:            status,
			Trend:             wellness.TrendFor(e.PreviousDistance, e.EmotionalDistance),
			Confidence:        e.Confidence,
			Recommendations:   wellness.Recommendations(status),
			LastInteractionAt: e.LastInteractionAt,
		})
	}
	writeJSON(w, http.StatusOK, pairs)
}

// visible loads the roster and the edges the viewer may see. Members who
// turned off trust graph visibility keep their edges private to themselves,
// and moods hidden from the viewer are blanked on the roster.
func (h *GraphHandler) visible(w http.ResponseWriter, r *http.Request) ([]model.FamilyMember, []model.Relationship, bool) {
	viewer := auth.MemberID(r.Context())

	members, err := h.memberStore.List()
	if err != nil {
		writeStoreError(w, h.logger, "list family members", err)
		return nil, nil, false
	}
	edges, err := h.relationshipStore.List()
	if err != nil {
		writeStoreError(w, h.logger, "list relationships", err)
		return nil, nil, false
	}
	settings, err := h.settingsStore.ByMember()
	if err != nil {
		writeStoreError(w, h.logger, "load settings", err)
		return nil, nil, false
	}

	hidden := func(memberID int64) bool {
		s, ok := settings[memberID]
		return ok && memberID != viewer && !s.TrustGraphVisibility
	}
	out := edges[:0]
	for _, e := range edges {
		if e.Involves(viewer) || (!hidden(e.MemberA) && !hidden(e.MemberB)) {
			out = append(out, e)
		}
	}
	return moodMask(settings).members(members, viewer), out, true
}

func nodeFor(m model.FamilyMember) graphNode {
	return graphNode{
		ID:        m.ID,
		Name:      m.Name,
		Role:      m.Role,
		Avatar:    m.Avatar,
		Mood:      m.Mood,
		MoodScore: m.MoodScore,
	}
}

func buildGraph(members []model.FamilyMember, edges []model.Relationship) graphResponse {
	resp := graphResponse{
		Nodes: make([]graphNode, 0, len(members)),
		Edges: make([]graphEdge, 0, len(edges)),
	}
	total := 0
	for _, m := range members {
		resp.Nodes = append(resp.Nodes, nodeFor(m))
	}
	for _, e := range edges {
		resp.Edges = append(resp.Edges, graphEdge{Relationship: e, Width: wellness.EdgeWidth(e.Strength)})
		total += e.Strength
		switch wellness.Health(e.Health) {
		case wellness.HealthStrong:
			resp.Stats.Strong++
		case wellness.HealthAtRisk:
			resp.Stats.AtRisk++
		}
	}
	resp.Stats.Connections = len(edges)
	if len(edges) > 0 {
		resp.Stats.AverageStrength = (total + len(edges)/2) / len(edges)
	}
	return resp
}
