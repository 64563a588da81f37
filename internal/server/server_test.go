package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/dukerupert/famwell/internal/database"
	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts, _, _ := startServer(t)
	return ts
}

// startServer is newTestServer that also hands back the server and its
// database for tests that inspect the hub or seed rows directly.
func startServer(t *testing.T) (*httptest.Server, *Server, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Options{BaseURL: "http://localhost"}, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, srv, db
}

// client is one browser session against the test server.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &client{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

// do sends body as JSON and decodes the response into out when out is
// non-nil. It returns the status code.
func (c *client) do(method, path string, body, out any) int {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode response (status %d): %v", method, path, resp.StatusCode, err)
		}
	}
	return resp.StatusCode
}

// status is do without decoding or failing the test, for use from
// goroutines.
func (c *client) status(method, path string, body any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// concurrently sends the same request n times at once and returns the
// status codes.
func (c *client) concurrently(n int, method, path string, body any) []int {
	c.t.Helper()
	statuses := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			statuses[i], errs[i] = c.status(method, path, body)
		}()
	}
	close(start)
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			c.t.Fatalf("%s %s: %v", method, path, err)
		}
	}
	return statuses
}

// wireEvent is a hub event as a client receives it.
type wireEvent struct {
	Type string          `json:"type"`
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"data"`
}

// listen opens the sync socket for c and waits until the hub has want
// clients.
func listen(t *testing.T, ts *httptest.Server, srv *Server, c *client, want int) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: c.http})
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	for srv.Hub().ClientCount() < want {
		if ctx.Err() != nil {
			t.Fatalf("hub clients = %d, want %d", srv.Hub().ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

// drain reads events until none arrive for window. A timed out read closes
// the connection, so drain is the last use of conn.
func drain(t *testing.T, conn *websocket.Conn, window time.Duration) []wireEvent {
	t.Helper()
	var out []wireEvent
	for {
		ctx, cancel := context.WithTimeout(context.Background(), window)
		_, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			return out
		}
		var ev wireEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		out = append(out, ev)
	}
}

func eventsOfType(events []wireEvent, typ string) []wireEvent {
	var out []wireEvent
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func signup(t *testing.T, ts *httptest.Server, name string) *client {
	t.Helper()
	c := newClient(t, ts)
	status := c.do("POST", "/auth/signup", map[string]string{
		"name":     name,
		"email":    strings.ToLower(name) + "@example.com",
		"password": "correct horse",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status = %d, want 201", name, status)
	}
	return c
}

func memberIDByName(t *testing.T, c *client, name string) int64 {
	t.Helper()
	var members []model.FamilyMember
	if status := c.do("GET", "/api/family-members", nil, &members); status != http.StatusOK {
		t.Fatalf("list members: status = %d", status)
	}
	for _, m := range members {
		if m.Name == name {
			return m.ID
		}
	}
	t.Fatalf("member %q not found", name)
	return 0
}

func checkIn(t *testing.T, c *client, mood string, shared bool) checkInResult {
	t.Helper()
	var res checkInResult
	status := c.do("POST", "/api/checkins", map[string]any{"mood": mood, "shared": shared}, &res)
	if status != http.StatusCreated {
		t.Fatalf("check in %s: status = %d, want 201", mood, status)
	}
	return res
}

type checkInResult struct {
	CheckIn    model.MoodCheckIn  `json:"checkin"`
	Member     model.FamilyMember `json:"member"`
	Activity   *model.Activity    `json:"activity"`
	Points     int                `json:"points"`
	Activities []model.Activity   `json:"activities"`
}

type dashboard struct {
	Members []struct {
		model.FamilyMember
		MoodHidden bool `json:"mood_hidden"`
	} `json:"members"`
	FamilyScore *int             `json:"family_score"`
	Category    string           `json:"category"`
	Activities  []model.Activity `json:"activities"`
}

func countActivities(acts []model.Activity, substr string) int {
	n := 0
	for _, a := range acts {
		if strings.Contains(a.Summary, substr) {
			n++
		}
	}
	return n
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)

	var body map[string]any
	if status := c.do("GET", "/health", nil, &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestAPIRequiresSession(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)

	var body map[string]string
	if status := c.do("GET", "/api/dashboard", nil, &body); status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestSignupLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	c := signup(t, ts, "Sarah")

	var profile model.Profile
	if status := c.do("GET", "/api/profile", nil, &profile); status != http.StatusOK {
		t.Fatalf("profile: status = %d", status)
	}
	if profile.Name != "Sarah" || profile.Role != "Parent" {
		t.Errorf("profile = %+v", profile)
	}

	dup := newClient(t, ts)
	status := dup.do("POST", "/auth/signup", map[string]string{
		"name": "Other", "email": "SARAH@example.com", "password": "whatever123",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("duplicate email: status = %d, want 409", status)
	}

	if status := c.do("POST", "/auth/logout", nil, nil); status != http.StatusNoContent {
		t.Fatalf("logout: status = %d, want 204", status)
	}
	if status := c.do("GET", "/api/profile", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("profile after logout: status = %d, want 401", status)
	}

	status = c.do("POST", "/auth/login", map[string]string{"email": "sarah@example.com", "password": "wrong password"}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", status)
	}
	status = c.do("POST", "/auth/login", map[string]string{"email": "sarah@example.com", "password": "correct horse"}, &profile)
	if status != http.StatusOK {
		t.Fatalf("login: status = %d, want 200", status)
	}
	if status := c.do("GET", "/api/profile", nil, nil); status != http.StatusOK {
		t.Errorf("profile after login: status = %d, want 200", status)
	}
}

func TestDemoSignIn(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)

	var profile model.Profile
	if status := c.do("POST", "/auth/demo", nil, &profile); status != http.StatusOK {
		t.Fatalf("demo: status = %d, want 200", status)
	}
	if profile.Email == "" {
		t.Error("expected demo profile email")
	}

	var members []model.FamilyMember
	c.do("GET", "/api/family-members", nil, &members)
	if len(members) == 0 {
		t.Fatal("expected demo family members")
	}

	// Loading again reuses the demo family.
	again := newClient(t, ts)
	if status := again.do("POST", "/auth/demo", nil, nil); status != http.StatusOK {
		t.Errorf("second demo: status = %d, want 200", status)
	}
}

func TestDemoRefusesExistingFamily(t *testing.T) {
	ts := newTestServer(t)
	signup(t, ts, "Sarah")

	c := newClient(t, ts)
	if status := c.do("POST", "/auth/demo", nil, nil); status != http.StatusConflict {
		t.Errorf("status = %d, want 409", status)
	}
}

func TestCheckInFeedAndDraft(t *testing.T) {
	ts := newTestServer(t)
	c := signup(t, ts, "Emma")

	var draft model.CheckInDraft
	if status := c.do("PUT", "/api/checkins/draft", map[string]string{"mood": "happy", "note": "sunny"}, &draft); status != http.StatusOK {
		t.Fatalf("save draft: status = %d", status)
	}
	if draft.Mood != "Happy" {
		t.Errorf("draft mood = %q, want Happy", draft.Mood)
	}

	var last checkInResult
	for range 6 {
		last = checkIn(t, c, "Happy", true)
	}
	if last.Activity == nil {
		t.Fatal("expected a feed entry for a shared check-in")
	}
	if len(last.Activities) != 5 {
		t.Fatalf("feed length = %d, want 5", len(last.Activities))
	}
	if last.Activities[0].ID != last.Activity.ID {
		t.Errorf("feed head = %d, want new activity %d", last.Activities[0].ID, last.Activity.ID)
	}

	c.do("GET", "/api/checkins/draft", nil, &draft)
	if draft.Mood != "" || draft.Note != "" {
		t.Errorf("draft not cleared: %+v", draft)
	}

	private := checkIn(t, c, "Tired", false)
	if private.Activity != nil {
		t.Error("private check-in should not add a feed entry")
	}
	if private.Activities[0].ID != last.Activity.ID {
		t.Errorf("feed head changed after private check-in")
	}

	if status := c.do("POST", "/api/checkins", map[string]string{"mood": "Hangry"}, nil); status != http.StatusBadRequest {
		t.Errorf("unknown mood: status = %d, want 400", status)
	}
}

func TestDashboardFamilyScore(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")
	signup(t, ts, "Carol")

	checkIn(t, alice, "Happy", true) // Blend(50, 85) = 68
	checkIn(t, bob, "Sad", true)     // Blend(50, 30) = 40

	var d dashboard
	if status := alice.do("GET", "/api/dashboard", nil, &d); status != http.StatusOK {
		t.Fatalf("dashboard: status = %d", status)
	}
	if d.FamilyScore == nil || *d.FamilyScore != 54 {
		t.Fatalf("family_score = %v, want 54", d.FamilyScore)
	}
	if d.Category != "good" {
		t.Errorf("category = %q, want good", d.Category)
	}

	aliceID := memberIDByName(t, alice, "Alice")
	status := bob.do("PUT", "/api/settings", map[string]any{
		"mood_visibility": map[string]bool{jsonID(aliceID): false},
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("update settings: status = %d", status)
	}

	alice.do("GET", "/api/dashboard", nil, &d)
	if d.FamilyScore == nil || *d.FamilyScore != 68 {
		t.Errorf("family_score with hidden mood = %v, want 68", d.FamilyScore)
	}
	for _, m := range d.Members {
		if m.Name == "Bob" && (!m.MoodHidden || m.Mood != "") {
			t.Errorf("bob's mood should be hidden from alice: %+v", m)
		}
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestDashboardNoScoreWithoutMoods(t *testing.T) {
	ts := newTestServer(t)
	c := signup(t, ts, "Alice")

	var d dashboard
	c.do("GET", "/api/dashboard", nil, &d)
	if d.FamilyScore != nil {
		t.Errorf("family_score = %d, want none", *d.FamilyScore)
	}
}

func TestHelpRequestSubmittedTwice(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")

	req := map[string]any{"request_key": "k-1", "reason": "stressed", "contact": "parent"}
	var first, second model.HelpRequest
	if status := bob.do("POST", "/api/help-requests", req, &first); status != http.StatusCreated {
		t.Fatalf("first submit: status = %d, want 201", status)
	}
	if first.Message == "" {
		t.Error("expected the default message")
	}
	if status := bob.do("POST", "/api/help-requests", req, &second); status != http.StatusOK {
		t.Fatalf("second submit: status = %d, want 200", status)
	}
	if second.ID != first.ID {
		t.Errorf("second submit id = %d, want %d", second.ID, first.ID)
	}

	var requests []model.HelpRequest
	alice.do("GET", "/api/help-requests", nil, &requests)
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}

	var d dashboard
	alice.do("GET", "/api/dashboard", nil, &d)
	if n := countActivities(d.Activities, "asked the family for support"); n != 1 {
		t.Errorf("help activities = %d, want 1", n)
	}

	if status := alice.do("POST", "/api/help-requests", req, nil); status != http.StatusConflict {
		t.Errorf("reused key by another member: status = %d, want 409", status)
	}

	path := "/api/help-requests/" + jsonID(first.ID) + "/respond"
	if status := bob.do("POST", path, nil, nil); status != http.StatusBadRequest {
		t.Errorf("respond to own request: status = %d, want 400", status)
	}
	var responded model.HelpRequest
	if status := alice.do("POST", path, nil, &responded); status != http.StatusOK {
		t.Fatalf("respond: status = %d", status)
	}
	if responded.Status != "responded" || responded.RespondedAt == nil {
		t.Errorf("responded = %+v", responded)
	}
	var again model.HelpRequest
	if status := alice.do("POST", path, nil, &again); status != http.StatusOK {
		t.Fatalf("respond again: status = %d", status)
	}
	if !again.RespondedAt.Equal(*responded.RespondedAt) {
		t.Errorf("responded_at changed on repeat")
	}
}

func TestAnonymousHelpRequestHidesRequester(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")

	req := map[string]any{"reason": "lonely", "contact": "sibling", "anonymous": true}
	if status := bob.do("POST", "/api/help-requests", req, nil); status != http.StatusCreated {
		t.Fatalf("submit: status = %d", status)
	}

	var requests []model.HelpRequest
	alice.do("GET", "/api/help-requests", nil, &requests)
	if len(requests) != 1 || requests[0].RequesterID != 0 || requests[0].RequestKey != "" {
		t.Errorf("anonymous request leaked its requester: %+v", requests)
	}
	bob.do("GET", "/api/help-requests?mine=true", nil, &requests)
	if len(requests) != 1 || requests[0].RequesterID == 0 {
		t.Errorf("requester should see their own request: %+v", requests)
	}
}

func TestNudgeSentOnce(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")
	checkIn(t, bob, "Sad", false)
	bobID := memberIDByName(t, alice, "Bob")

	var gen struct {
		Created []model.Nudge `json:"created"`
		Pending []model.Nudge `json:"pending"`
	}
	if status := alice.do("POST", "/api/nudges/generate", nil, &gen); status != http.StatusOK {
		t.Fatalf("generate: status = %d", status)
	}
	var nudge *model.Nudge
	for i, n := range gen.Pending {
		if n.TargetMemberID != nil && *n.TargetMemberID == bobID {
			nudge = &gen.Pending[i]
			break
		}
	}
	if nudge == nil {
		t.Fatalf("no nudge targeting bob in %+v", gen.Pending)
	}

	// Generating again queues nothing new.
	alice.do("POST", "/api/nudges/generate", nil, &gen)
	if len(gen.Created) != 0 {
		t.Errorf("second generate created %d nudges, want 0", len(gen.Created))
	}

	path := "/api/nudges/" + jsonID(nudge.ID) + "/send"
	if status := bob.do("POST", path, map[string]string{}, nil); status != http.StatusNotFound {
		t.Errorf("send someone else's nudge: status = %d, want 404", status)
	}

	var first, second model.Nudge
	if status := alice.do("POST", path, map[string]string{"message": "Thinking of you"}, &first); status != http.StatusOK {
		t.Fatalf("send: status = %d", status)
	}
	if first.Status != "sent" || first.SentAt == nil {
		t.Fatalf("sent nudge = %+v", first)
	}
	if status := alice.do("POST", path, map[string]string{"message": "Again"}, &second); status != http.StatusOK {
		t.Fatalf("send again: status = %d", status)
	}
	if second.SentMessage != "Thinking of you" || !second.SentAt.Equal(*first.SentAt) {
		t.Errorf("repeat send changed the nudge: %+v", second)
	}

	var d dashboard
	alice.do("GET", "/api/dashboard", nil, &d)
	if n := countActivities(d.Activities, "reached out to"); n != 1 {
		t.Errorf("nudge activities = %d, want 1", n)
	}
}

func TestNudgesRespectInsightsSetting(t *testing.T) {
	ts := newTestServer(t)
	c := signup(t, ts, "Alice")

	if status := c.do("PUT", "/api/settings", map[string]bool{"ai_insights": false}, nil); status != http.StatusOK {
		t.Fatalf("update settings: status = %d", status)
	}
	if status := c.do("POST", "/api/nudges/generate", nil, nil); status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
}

func TestChatReactionToggle(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")
	aliceID := memberIDByName(t, alice, "Alice")

	var msg model.ChatMessage
	if status := alice.do("POST", "/api/chat/messages", map[string]string{"content": "Proud of you all!"}, &msg); status != http.StatusCreated {
		t.Fatalf("post message: status = %d", status)
	}

	type reactionResult struct {
		Added     bool                  `json:"added"`
		Reactions []model.ReactionGroup `json:"reactions"`
	}
	path := "/api/chat/messages/" + jsonID(msg.ID) + "/reactions"
	heart := map[string]string{"emoji": "❤️"}

	var res reactionResult
	bob.do("POST", path, heart, &res)
	if !res.Added || len(res.Reactions) != 1 || res.Reactions[0].Count != 1 {
		t.Fatalf("first reaction = %+v", res)
	}
	alice.do("POST", path, heart, &res)
	if !res.Added || res.Reactions[0].Count != 2 {
		t.Fatalf("second reaction = %+v", res)
	}
	bob.do("POST", path, heart, &res)
	if res.Added {
		t.Error("repeat reaction should remove the vote")
	}
	if len(res.Reactions) != 1 || res.Reactions[0].Count != 1 || res.Reactions[0].Members[0] != aliceID {
		t.Errorf("after toggle off = %+v", res.Reactions)
	}

	if status := bob.do("POST", "/api/chat/messages/9999/reactions", heart, nil); status != http.StatusNotFound {
		t.Errorf("missing message: status = %d, want 404", status)
	}
}

func TestJournalPrivacy(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")

	var private, shared model.JournalEntry
	status := alice.do("POST", "/api/journal", map[string]any{
		"title": "Just for me", "content": "quiet thoughts", "is_private": true,
	}, &private)
	if status != http.StatusCreated {
		t.Fatalf("create private: status = %d", status)
	}
	status = alice.do("POST", "/api/journal", map[string]any{
		"title": "Grateful", "content": "family dinner", "tags": []string{"Gratitude"},
	}, &shared)
	if status != http.StatusCreated {
		t.Fatalf("create shared: status = %d", status)
	}
	if shared.IsPrivate {
		t.Error("entry should default to shared when journal sharing is on")
	}

	var entries []model.JournalEntry
	bob.do("GET", "/api/journal", nil, &entries)
	if len(entries) != 1 || entries[0].ID != shared.ID {
		t.Errorf("bob sees %+v, want only the shared entry", entries)
	}
	alice.do("GET", "/api/journal", nil, &entries)
	if len(entries) != 2 {
		t.Errorf("alice sees %d entries, want 2", len(entries))
	}

	edit := map[string]any{"title": "Mine now", "content": "x"}
	if status := bob.do("PUT", "/api/journal/"+jsonID(private.ID), edit, nil); status != http.StatusNotFound {
		t.Errorf("edit private entry: status = %d, want 404", status)
	}
	if status := bob.do("PUT", "/api/journal/"+jsonID(shared.ID), edit, nil); status != http.StatusForbidden {
		t.Errorf("edit shared entry: status = %d, want 403", status)
	}
	if status := alice.do("DELETE", "/api/journal/"+jsonID(shared.ID), nil, nil); status != http.StatusNoContent {
		t.Errorf("delete own entry: status = %d, want 204", status)
	}
}

func TestPairsCriticalFilter(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	signup(t, ts, "Bob")
	signup(t, ts, "Carol")

	aliceID := memberIDByName(t, alice, "Alice")
	bobID := memberIDByName(t, alice, "Bob")
	carolID := memberIDByName(t, alice, "Carol")

	for _, e := range []struct {
		b        int64
		strength int
	}{{bobID, 90}, {carolID, 20}} {
		status := alice.do("PUT", "/api/graph/edges", map[string]any{
			"member_a": aliceID, "member_b": e.b, "strength": e.strength,
		}, nil)
		if status != http.StatusOK {
			t.Fatalf("upsert edge: status = %d", status)
		}
	}

	var pairs []struct {
		Status  string `json:"status"`
		MemberB struct {
			ID int64 `json:"id"`
		} `json:"member_b"`
	}
	alice.do("GET", "/api/pairs", nil, &pairs)
	if len(pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(pairs))
	}
	alice.do("GET", "/api/pairs?status=critical", nil, &pairs)
	if len(pairs) != 1 || pairs[0].Status != "at_risk" || pairs[0].MemberB.ID != carolID {
		t.Errorf("critical pairs = %+v", pairs)
	}

	status := alice.do("PUT", "/api/graph/edges", map[string]any{
		"member_a": aliceID, "member_b": aliceID, "strength": 50,
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("self edge: status = %d, want 400", status)
	}
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)

	creds := map[string]string{"email": "nobody@example.com", "password": "nope nope"}
	for i := range authRateLimit {
		if status := c.do("POST", "/auth/login", creds, nil); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, status)
		}
	}
	if status := c.do("POST", "/auth/login", creds, nil); status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", status)
	}
}

func TestDeleteAccount(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")
	checkIn(t, bob, "Calm", true)

	if status := bob.do("DELETE", "/api/profile", nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete account: status = %d, want 204", status)
	}
	if status := bob.do("GET", "/api/profile", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("profile after delete: status = %d, want 401", status)
	}

	var members []model.FamilyMember
	alice.do("GET", "/api/family-members", nil, &members)
	if len(members) != 1 || members[0].Name != "Alice" {
		t.Errorf("members = %+v, want only Alice", members)
	}

	login := newClient(t, ts)
	status := login.do("POST", "/auth/login", map[string]string{"email": "bob@example.com", "password": "correct horse"}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("login after delete: status = %d, want 401", status)
	}
}

func TestSettingsExportDownload(t *testing.T) {
	ts := newTestServer(t)
	c := signup(t, ts, "Alice")
	checkIn(t, c, "Happy", true)

	req, _ := http.NewRequest("GET", ts.URL+"/api/settings/export", nil)
	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	want := "famwell-export-" + time.Now().UTC().Format("2006-01-02")
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, want) {
		t.Errorf("Content-Disposition = %q, want it to contain %q", cd, want)
	}

	if status := c.do("POST", "/api/settings/export/archive", map[string]string{"passphrase": "long enough"}, nil); status != http.StatusServiceUnavailable {
		t.Errorf("archive without storage: status = %d, want 503", status)
	}
}

func TestMoodHiddenOutsideDashboard(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")
	carol := signup(t, ts, "Carol")
	checkIn(t, bob, "Sad", false) // Blend(50, 30) = 40

	aliceID := memberIDByName(t, alice, "Alice")
	bobID := memberIDByName(t, alice, "Bob")
	status := bob.do("PUT", "/api/settings", map[string]any{
		"mood_visibility": map[string]bool{jsonID(aliceID): false},
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("update settings: status = %d", status)
	}

	moodOf := func(c *client, path string) (string, int) {
		t.Helper()
		var members []model.FamilyMember
		if path == "/api/graph" {
			var g struct {
				Nodes []model.FamilyMember `json:"nodes"`
			}
			c.do("GET", path, nil, &g)
			members = g.Nodes
		} else {
			c.do("GET", path, nil, &members)
		}
		for _, m := range members {
			if m.ID == bobID {
				return m.Mood, m.MoodScore
			}
		}
		t.Fatalf("%s: bob missing", path)
		return "", 0
	}

	for _, path := range []string{"/api/family-members", "/api/graph"} {
		if mood, score := moodOf(alice, path); mood != "" || score != 0 {
			t.Errorf("alice sees bob as %q/%d on %s, want hidden", mood, score, path)
		}
		if mood, score := moodOf(carol, path); mood != "Sad" || score != 40 {
			t.Errorf("carol sees bob as %q/%d on %s, want Sad/40", mood, score, path)
		}
		if mood, _ := moodOf(bob, path); mood != "Sad" {
			t.Errorf("bob sees himself as %q on %s, want Sad", mood, path)
		}
	}

	var gen struct {
		Pending []model.Nudge `json:"pending"`
	}
	if status := alice.do("POST", "/api/nudges/generate", nil, &gen); status != http.StatusOK {
		t.Fatalf("generate: status = %d", status)
	}
	for _, n := range gen.Pending {
		if n.TargetMemberID != nil && *n.TargetMemberID == bobID {
			t.Errorf("alice got a nudge about bob's hidden mood: %+v", n)
		}
	}
}

func TestCheckInEventsRespectSharingAndVisibility(t *testing.T) {
	ts, srv, _ := startServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")
	aliceID := memberIDByName(t, alice, "Alice")

	aliceConn := listen(t, ts, srv, alice, 1)
	bobConn := listen(t, ts, srv, bob, 2)

	checkIn(t, bob, "Sad", false)

	status := bob.do("PUT", "/api/settings", map[string]any{
		"mood_visibility": map[string]bool{jsonID(aliceID): false},
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("update settings: status = %d", status)
	}
	checkIn(t, bob, "Happy", true)

	got := drain(t, aliceConn, 300*time.Millisecond)
	if n := len(eventsOfType(got, "checkin.created")); n != 0 {
		t.Errorf("alice received %d checkin.created events, want 0", n)
	}
	if n := len(eventsOfType(got, "activity.created")); n != 0 {
		t.Errorf("alice received %d activity.created events, want 0", n)
	}
	updates := eventsOfType(got, "member.updated")
	if len(updates) != 2 {
		t.Fatalf("alice member.updated = %d, want 2", len(updates))
	}
	var first, second model.FamilyMember
	json.Unmarshal(updates[0].Data, &first)
	json.Unmarshal(updates[1].Data, &second)
	if first.Mood != "Sad" {
		t.Errorf("first update mood = %q, want Sad", first.Mood)
	}
	if second.Mood != "" || second.MoodScore != 0 {
		t.Errorf("second update = %q/%d, want mood stripped", second.Mood, second.MoodScore)
	}

	own := drain(t, bobConn, 300*time.Millisecond)
	if n := len(eventsOfType(own, "checkin.created")); n != 2 {
		t.Errorf("bob received %d checkin.created events, want 2", n)
	}

	var d dashboard
	alice.do("GET", "/api/dashboard", nil, &d)
	if n := countActivities(d.Activities, "Bob checked in"); n != 0 {
		t.Errorf("alice's feed shows %d hidden check-ins", n)
	}
	bob.do("GET", "/api/dashboard", nil, &d)
	if n := countActivities(d.Activities, "Bob checked in"); n != 1 {
		t.Errorf("bob's feed shows %d of his check-ins, want 1", n)
	}
}

func TestPrivateJournalReactionsStayWithAuthor(t *testing.T) {
	ts, srv, db := startServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")

	var private, shared model.JournalEntry
	alice.do("POST", "/api/journal", map[string]any{"title": "Just for me", "content": "quiet", "is_private": true}, &private)
	alice.do("POST", "/api/journal", map[string]any{"title": "Grateful", "content": "dinner"}, &shared)

	bobConn := listen(t, ts, srv, bob, 1)

	heart := map[string]string{"emoji": "❤️"}
	if status := alice.do("POST", "/api/journal/"+jsonID(private.ID)+"/reactions", heart, nil); status != http.StatusOK {
		t.Fatalf("react to private entry: status = %d", status)
	}
	if status := alice.do("POST", "/api/journal/"+jsonID(shared.ID)+"/reactions", heart, nil); status != http.StatusOK {
		t.Fatalf("react to shared entry: status = %d", status)
	}

	toggled := eventsOfType(drain(t, bobConn, 300*time.Millisecond), "reaction.toggled")
	if len(toggled) != 1 || toggled[0].ID != shared.ID {
		t.Errorf("bob received reaction events %+v, want only entry %d", toggled, shared.ID)
	}

	if status := alice.do("DELETE", "/api/journal/"+jsonID(shared.ID), nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete entry: status = %d", status)
	}
	var left int
	db.QueryRow(`SELECT COUNT(*) FROM reactions WHERE target_type = 'journal' AND target_id = ?`, shared.ID).Scan(&left)
	if left != 0 {
		t.Errorf("reactions on deleted entry = %d, want 0", left)
	}
}

func TestNudgeSendConcurrent(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")
	checkIn(t, bob, "Sad", false)
	bobID := memberIDByName(t, alice, "Bob")

	var gen struct {
		Pending []model.Nudge `json:"pending"`
	}
	alice.do("POST", "/api/nudges/generate", nil, &gen)
	var nudgeID int64
	for _, n := range gen.Pending {
		if n.TargetMemberID != nil && *n.TargetMemberID == bobID {
			nudgeID = n.ID
		}
	}
	if nudgeID == 0 {
		t.Fatalf("no nudge targeting bob in %+v", gen.Pending)
	}

	path := "/api/nudges/" + jsonID(nudgeID) + "/send"
	for i, status := range alice.concurrently(8, "POST", path, map[string]string{"message": "Thinking of you"}) {
		if status != http.StatusOK {
			t.Errorf("send %d: status = %d, want 200", i, status)
		}
	}

	var nudges []model.Nudge
	alice.do("GET", "/api/nudges", nil, &nudges)
	sent := 0
	for _, n := range nudges {
		if n.ID == nudgeID && n.Status == "sent" {
			sent++
		}
	}
	if sent != 1 {
		t.Errorf("sent nudges = %d, want 1", sent)
	}

	var d dashboard
	alice.do("GET", "/api/dashboard", nil, &d)
	if n := countActivities(d.Activities, "reached out to"); n != 1 {
		t.Errorf("nudge activities = %d, want 1", n)
	}
}

func TestHelpRequestSubmittedConcurrently(t *testing.T) {
	ts := newTestServer(t)
	alice := signup(t, ts, "Alice")
	bob := signup(t, ts, "Bob")

	req := map[string]any{"request_key": "k-race", "reason": "stressed", "contact": "parent"}
	created := 0
	for i, status := range bob.concurrently(8, "POST", "/api/help-requests", req) {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusOK:
		default:
			t.Errorf("submit %d: status = %d", i, status)
		}
	}
	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}

	var requests []model.HelpRequest
	alice.do("GET", "/api/help-requests", nil, &requests)
	if len(requests) != 1 {
		t.Errorf("requests = %d, want 1", len(requests))
	}

	var d dashboard
	alice.do("GET", "/api/dashboard", nil, &d)
	if n := countActivities(d.Activities, "asked the family for support"); n != 1 {
		t.Errorf("help activities = %d, want 1", n)
	}
}

func TestChallengeProgressAfterEndsAt(t *testing.T) {
	ts, _, db := startServer(t)
	alice := signup(t, ts, "Alice")

	ended := time.Now().Add(-48 * time.Hour)
	c, err := store.NewChallengeStore(db).Create("Family walk", "Walk together after dinner", "weekly", 3, 20, &ended)
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}

	var p model.ChallengeProgress
	status := alice.do("POST", "/api/challenges/"+jsonID(c.ID)+"/progress", map[string]int{"delta": 1}, &p)
	if status != http.StatusOK {
		t.Fatalf("progress past ends_at: status = %d, want 200", status)
	}
	if p.Progress != 1 {
		t.Errorf("progress = %d, want 1", p.Progress)
	}
}
