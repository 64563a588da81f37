package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/famwell/internal/email"
	"github.com/dukerupert/famwell/internal/export"
	"github.com/dukerupert/famwell/internal/federated"
	"github.com/dukerupert/famwell/internal/handler"
	"github.com/dukerupert/famwell/internal/middleware"
	"github.com/dukerupert/famwell/internal/push"
	"github.com/dukerupert/famwell/internal/seed"
	"github.com/dukerupert/famwell/internal/store"
	"github.com/dukerupert/famwell/internal/wellness"
	ws "github.com/dukerupert/famwell/internal/websocket"
)

// Sign-in endpoints allow this many attempts per client per minute.
const authRateLimit = 10

// Options carries the optional services and settings the server is built
// with. Nil services disable their features.
type Options struct {
	BaseURL      string
	SecureCookie bool
	ReminderHour int
	PushService  *push.Service
	EmailClient  *email.Client
	Verifier     *federated.Verifier
	Archive      export.S3Config
	Simulator    *wellness.Simulator
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	baseURL       string
	authH         *handler.AuthHandler
	familyMemberH *handler.FamilyMemberHandler
	dashboardH    *handler.DashboardHandler
	checkInH      *handler.CheckInHandler
	graphH        *handler.GraphHandler
	journalH      *handler.JournalHandler
	chatH         *handler.ChatHandler
	nudgeH        *handler.NudgeHandler
	wellnessH     *handler.WellnessHandler
	helpH         *handler.HelpHandler
	settingsH     *handler.SettingsHandler
	pushH         *handler.PushHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	rateLimiter   *middleware.RateLimiter
	reminderSched *push.ReminderScheduler
	logger        *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	familyMemberStore := store.NewFamilyMemberStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	checkInStore := store.NewCheckInStore(db)
	activityStore := store.NewActivityStore(db)
	relationshipStore := store.NewRelationshipStore(db)
	journalStore := store.NewJournalStore(db)
	chatStore := store.NewChatStore(db)
	reactionStore := store.NewReactionStore(db)
	nudgeStore := store.NewNudgeStore(db)
	challengeStore := store.NewChallengeStore(db)
	helpStore := store.NewHelpRequestStore(db)
	pointStore := store.NewPointStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)
	reminderStore := store.NewReminderStore(db)
	exportStore := store.NewExportStore(db)

	notifier := push.NewNotifier(opts.PushService, pushStore, userStore, settingsStore, logger)
	var reminderSched *push.ReminderScheduler
	if opts.PushService != nil {
		reminderSched = push.NewReminderScheduler(notifier, userStore, checkInStore, reminderStore, opts.ReminderHour, logger)
	}

	archiver := export.NewArchiver(opts.Archive, exportStore, logger)
	collector := &export.Collector{
		Members:  familyMemberStore,
		CheckIns: checkInStore,
		Journal:  journalStore,
		Chat:     chatStore,
		Nudges:   nudgeStore,
		Help:     helpStore,
		Settings: settingsStore,
	}
	demo := seed.Stores{
		Members:       familyMemberStore,
		Users:         userStore,
		Relationships: relationshipStore,
		CheckIns:      checkInStore,
		Journal:       journalStore,
		Chat:          chatStore,
		Reactions:     reactionStore,
		Nudges:        nudgeStore,
		Challenges:    challengeStore,
		Points:        pointStore,
	}

	return &Server{
		db:            db,
		hub:           hub,
		baseURL:       opts.BaseURL,
		authH:         handler.NewAuthHandler(userStore, sessionStore, demo, opts.Verifier, archiver, hub, opts.SecureCookie, logger.With("component", "auth")),
		familyMemberH: handler.NewFamilyMemberHandler(familyMemberStore, settingsStore, hub, logger.With("component", "family_member")),
		dashboardH:    handler.NewDashboardHandler(familyMemberStore, activityStore, settingsStore, logger.With("component", "dashboard")),
		checkInH:      handler.NewCheckInHandler(checkInStore, activityStore, settingsStore, notifier, hub, logger.With("component", "checkin")),
		graphH:        handler.NewGraphHandler(relationshipStore, familyMemberStore, settingsStore, opts.Simulator, hub, logger.With("component", "graph")),
		journalH:      handler.NewJournalHandler(journalStore, familyMemberStore, activityStore, pointStore, settingsStore, reactionStore, hub, logger.With("component", "journal")),
		chatH:         handler.NewChatHandler(chatStore, pointStore, reactionStore, hub, logger.With("component", "chat")),
		nudgeH:        handler.NewNudgeHandler(nudgeStore, familyMemberStore, relationshipStore, activityStore, settingsStore, notifier, hub, logger.With("component", "nudge")),
		wellnessH:     handler.NewWellnessHandler(challengeStore, familyMemberStore, pointStore, checkInStore, activityStore, hub, logger.With("component", "wellness")),
		helpH:         handler.NewHelpHandler(helpStore, familyMemberStore, userStore, settingsStore, activityStore, notifier, opts.EmailClient, hub, logger.With("component", "help")),
		settingsH:     handler.NewSettingsHandler(settingsStore, userStore, exportStore, collector, archiver, logger.With("component", "settings")),
		pushH:         handler.NewPushHandler(pushStore, opts.PushService, logger.With("component", "push_handler")),
		sessionStore:  sessionStore,
		userStore:     userStore,
		rateLimiter:   middleware.NewRateLimiter(),
		reminderSched: reminderSched,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// ReminderScheduler returns the mood reminder scheduler, or nil when push
// is not configured.
func (s *Server) ReminderScheduler() *push.ReminderScheduler {
	return s.reminderSched
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /auth/signup", s.rateLimitedHandler(s.authH.Signup))
	outerMux.HandleFunc("POST /auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /auth/federated", s.rateLimitedHandler(s.authH.Federated))
	outerMux.HandleFunc("POST /auth/demo", s.rateLimitedHandler(s.authH.Demo))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	logger := s.logger.With("component", "http")
	return middleware.RequestLogger(logger)(middleware.Recover(logger)(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "clients": s.hub.ClientCount()})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIP, authRateLimit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Routes that act as a roster member
	member := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireMember(h))
	}

	// Account
	mux.HandleFunc("POST /auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/profile", s.authH.Profile)
	mux.HandleFunc("PUT /api/profile", s.authH.UpdateProfile)
	mux.HandleFunc("DELETE /api/profile", s.authH.DeleteAccount)

	// Dashboard and roster
	member("GET /api/dashboard", s.dashboardH.Get)
	mux.HandleFunc("GET /api/family-members", s.familyMemberH.List)
	mux.HandleFunc("POST /api/family-members", s.familyMemberH.Create)
	mux.HandleFunc("PUT /api/family-members/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /api/family-members/{id}", s.familyMemberH.Delete)

	// Mood check-ins
	mux.HandleFunc("GET /api/moods", s.checkInH.Moods)
	member("POST /api/checkins", s.checkInH.Create)
	member("GET /api/checkins", s.checkInH.List)
	member("GET /api/checkins/draft", s.checkInH.GetDraft)
	member("PUT /api/checkins/draft", s.checkInH.SaveDraft)

	// Trust graph and pair tracker
	member("GET /api/graph", s.graphH.Get)
	member("POST /api/graph/refresh", s.graphH.Refresh)
	member("PUT /api/graph/edges", s.graphH.UpsertEdge)
	member("GET /api/pairs", s.graphH.Pairs)

	// Journal
	member("GET /api/journal", s.journalH.List)
	member("POST /api/journal", s.journalH.Create)
	mux.HandleFunc("GET /api/journal/prompts", s.journalH.Prompts)
	member("PUT /api/journal/{id}", s.journalH.Update)
	member("DELETE /api/journal/{id}", s.journalH.Delete)
	member("POST /api/journal/{id}/reactions", s.journalH.React)

	// Chat
	member("GET /api/chat/messages", s.chatH.List)
	member("POST /api/chat/messages", s.chatH.Create)
	member("POST /api/chat/messages/{id}/reactions", s.chatH.React)
	mux.HandleFunc("GET /api/chat/suggestions", s.chatH.Suggestions)

	// Nudges
	member("GET /api/nudges", s.nudgeH.List)
	member("POST /api/nudges/generate", s.nudgeH.Generate)
	member("POST /api/nudges/{id}/send", s.nudgeH.Send)

	// Challenges and points
	member("GET /api/challenges", s.wellnessH.ListChallenges)
	member("POST /api/challenges", s.wellnessH.CreateChallenge)
	member("POST /api/challenges/{id}/progress", s.wellnessH.AddProgress)
	mux.HandleFunc("GET /api/leaderboard", s.wellnessH.Leaderboard)
	mux.HandleFunc("GET /api/points/activities", s.wellnessH.PointActivities)

	// Help and crisis
	member("GET /api/help-requests", s.helpH.List)
	member("POST /api/help-requests", s.helpH.Create)
	member("POST /api/help-requests/{id}/respond", s.helpH.Respond)
	mux.HandleFunc("GET /api/help/options", s.helpH.Options)
	mux.HandleFunc("GET /api/crisis/resources", s.helpH.CrisisResources)
	member("POST /api/crisis/alert", s.helpH.CrisisAlert)

	// Settings and data export
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)
	mux.HandleFunc("GET /api/settings/export", s.settingsH.Export)
	mux.HandleFunc("POST /api/settings/export/archive", s.settingsH.Archive)
	mux.HandleFunc("GET /api/settings/export/archives", s.settingsH.ListArchives)
	mux.HandleFunc("POST /api/settings/export/archives/{id}/open", s.settingsH.OpenArchive)

	// Push notifications
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)

	// Real-time sync
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.baseURL, s.logger))
}
