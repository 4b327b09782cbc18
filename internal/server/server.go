package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/backup"
	"github.com/jbickell/laneway/internal/billing"
	"github.com/jbickell/laneway/internal/email"
	"github.com/jbickell/laneway/internal/extract"
	"github.com/jbickell/laneway/internal/handler"
	"github.com/jbickell/laneway/internal/middleware"
	"github.com/jbickell/laneway/internal/push"
	"github.com/jbickell/laneway/internal/store"
	"github.com/jbickell/laneway/internal/transcribe"
	ws "github.com/jbickell/laneway/internal/websocket"
)

// Config carries the external-service configuration the server wires up.
type Config struct {
	BaseURL         string
	JWTSecret       string
	SupportEmail    string
	PostmarkToken   string
	FromEmail       string
	TranscribeKey   string
	ExtractKey      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Billing         billing.Config
	Backup          backup.Config
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	taskH         *handler.TaskHandler
	contactH      *handler.ContactHandler
	teamH         *handler.TeamHandler
	statsH        *handler.StatsHandler
	authH         *handler.AuthHandler
	accountH      *handler.AccountHandler
	captureH      *handler.CaptureHandler
	billingH      *handler.BillingHandler
	pushH         *handler.PushHandler
	supportH      *handler.SupportHandler
	sessionStore  *store.SessionStore
	resetStore    *store.ResetCodeStore
	issuer        *auth.TokenIssuer
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	taskStore := store.NewTaskStore(db)
	contactStore := store.NewContactStore(db)
	teamStore := store.NewTeamStore(db)
	statsStore := store.NewStatsStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	resetStore := store.NewResetCodeStore(db)
	pushStore := store.NewPushStore(db)

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	billingClient := billing.NewClient(cfg.Billing)
	transcribeClient := transcribe.NewClient(cfg.TranscribeKey)
	extractClient := extract.NewClient(cfg.ExtractKey)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, 30*24*time.Hour)

	var pushSvc *push.Service
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	}

	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		taskH:         handler.NewTaskHandler(taskStore, contactStore, teamStore, statsStore, pushStore, pushSvc, hub, logger.With("component", "task")),
		contactH:      handler.NewContactHandler(contactStore, hub, logger.With("component", "contact")),
		teamH:         handler.NewTeamHandler(teamStore, userStore, emailClient, hub, logger.With("component", "team")),
		statsH:        handler.NewStatsHandler(statsStore, taskStore, logger.With("component", "stats")),
		authH:         handler.NewAuthHandler(userStore, sessionStore, resetStore, statsStore, emailClient, issuer, logger.With("component", "auth")),
		accountH:      handler.NewAccountHandler(userStore, logger.With("component", "account")),
		captureH:      handler.NewCaptureHandler(taskStore, userStore, billingClient, transcribeClient, extractClient, hub, logger.With("component", "capture")),
		billingH:      handler.NewBillingHandler(userStore, billingClient, logger.With("component", "billing")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push")),
		supportH:      handler.NewSupportHandler(userStore, emailClient, cfg.SupportEmail, logger.With("component", "support")),
		sessionStore:  sessionStore,
		resetStore:    resetStore,
		issuer:        issuer,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// ResetCodeStore returns the reset code store for cleanup tasks.
func (s *Server) ResetCodeStore() *store.ResetCodeStore {
	return s.resetStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /password-reset/request", s.rateLimitedHandler(s.authH.RequestPasswordReset))
	outerMux.HandleFunc("POST /password-reset/confirm", s.rateLimitedHandler(s.authH.ConfirmPasswordReset))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.issuer)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Task API routes
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/move", s.taskH.Move)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)

	// Subtasks
	mux.HandleFunc("POST /api/tasks/{id}/subtasks", s.taskH.CreateSubtask)
	mux.HandleFunc("PUT /api/tasks/{id}/subtasks/{subtask_id}", s.taskH.UpdateSubtask)
	mux.HandleFunc("DELETE /api/tasks/{id}/subtasks/{subtask_id}", s.taskH.DeleteSubtask)

	// Delegation
	mux.HandleFunc("POST /api/tasks/{id}/delegate", s.taskH.Delegate)
	mux.HandleFunc("DELETE /api/tasks/{id}/delegate", s.taskH.ClearDelegation)
	mux.HandleFunc("POST /api/tasks/{id}/delegation-status", s.taskH.SetDelegationStatus)
	mux.HandleFunc("GET /api/tasks/{id}/notes", s.taskH.ListNotes)
	mux.HandleFunc("GET /api/delegated-to-me", s.taskH.ListDelegatedToMe)

	// Contacts
	mux.HandleFunc("POST /api/contacts", s.contactH.Create)
	mux.HandleFunc("GET /api/contacts", s.contactH.List)
	mux.HandleFunc("GET /api/contacts/{id}", s.contactH.Get)
	mux.HandleFunc("PUT /api/contacts/{id}", s.contactH.Update)
	mux.HandleFunc("DELETE /api/contacts/{id}", s.contactH.Delete)

	// Team + invites
	mux.HandleFunc("GET /api/team", s.teamH.ListMembers)
	mux.HandleFunc("DELETE /api/team/{id}", s.teamH.RemoveMember)
	mux.HandleFunc("POST /api/invites", s.teamH.CreateInvite)
	mux.HandleFunc("GET /api/invites", s.teamH.ListInvites)
	mux.HandleFunc("POST /api/invites/accept", s.teamH.AcceptInvite)
	mux.HandleFunc("POST /api/invites/{id}/decline", s.teamH.DeclineInvite)
	mux.HandleFunc("DELETE /api/invites/{id}", s.teamH.CancelInvite)
	mux.HandleFunc("POST /api/invites/{id}/regenerate", s.teamH.RegenerateInvite)

	// Stats + review
	mux.HandleFunc("GET /api/stats", s.statsH.Get)
	mux.HandleFunc("GET /api/review", s.statsH.Review)

	// Voice capture (premium, rate limited)
	mux.HandleFunc("POST /api/capture", s.rateLimitedHandler(s.captureH.Capture))

	// Billing
	mux.HandleFunc("GET /api/billing/status", s.billingH.Status)
	mux.HandleFunc("POST /api/billing/checkout", s.billingH.Checkout)
	mux.HandleFunc("POST /api/billing/portal", s.billingH.Portal)

	// Push subscriptions
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)

	// Support + account
	mux.HandleFunc("POST /api/support", s.supportH.Send)
	mux.HandleFunc("GET /api/account", s.accountH.Me)
	mux.HandleFunc("DELETE /api/account", s.accountH.Delete)

	// Live updates
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
