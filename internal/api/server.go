// Package api provides the development backend: the partner registry REST
// API served over SQLite.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/mastera/partnerdesk/internal/config"
	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/mastera/partnerdesk/internal/scheduler"
	"github.com/mastera/partnerdesk/internal/session"
	"github.com/mastera/partnerdesk/internal/store"
)

// PartnerStore defines the store operations the API needs.
type PartnerStore interface {
	ListPartners(ctx context.Context, req registry.ListRequest, limit int) (*registry.ListPage, error)
	GetPartner(ctx context.Context, id int64) (*registry.RawPartner, error)
	PutFile(ctx context.Context, partnerID int64, f registry.File, replace bool) error
	GetFile(ctx context.Context, partnerID int64) (*registry.File, error)

	CreateUser(ctx context.Context, u store.NewUser) (*store.User, error)
	Authenticate(ctx context.Context, email, password string) (*store.User, error)
	CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	SessionUser(ctx context.Context, token string) (*store.User, error)
}

// JobScheduler defines the scheduler operations the API needs.
type JobScheduler interface {
	Status() []JobStatus
	IsRunning() bool
}

// JobStatus is an alias for scheduler.JobStatus.
type JobStatus = scheduler.JobStatus

// Compile-time check.
var _ PartnerStore = (*store.Store)(nil)

// Server represents the development backend's HTTP server.
type Server struct {
	cfg         *config.Config
	store       PartnerStore
	scheduler   JobScheduler
	logger      *slog.Logger
	validate    *validator.Validate
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new API server. sched may be nil.
func NewServer(cfg *config.Config, st PartnerStore, sched JobScheduler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     st,
		scheduler: sched,
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS is disabled when no origins are configured.
	r.Use(CORSMiddleware(CORSConfig{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         86400,
	}))

	rps := s.cfg.Server.RateLimit
	if rps > 0 {
		s.rateLimiter = NewRateLimiter(rps, int(rps*2))
		r.Use(RateLimitMiddleware(s.rateLimiter))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/SysUser", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/createnewUser", s.handleRegister)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/BusinessPartner", s.handleListPartners)
		r.Get("/BusinessPartner/{id}", s.handleGetPartner)
		r.Get("/BusinessPartner/{id}/file", s.handleGetFile)
		r.With(s.requireUploadRole).Post("/BusinessPartner/{id}/file", s.handleUploadFile)
		r.With(s.requireUploadRole).Put("/BusinessPartner/{id}/file", s.handleUploadFile)

		r.Get("/scheduler/status", s.handleSchedulerStatus)
	})

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	bindAddr := s.cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	addr := net.JoinHostPort(bindAddr, strconv.Itoa(s.cfg.Server.APIPort))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting development backend", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down development backend")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

type ctxKey int

const userKey ctxKey = iota

// userFrom returns the authenticated user stored by authMiddleware.
func userFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(userKey).(*store.User)
	return u
}

// authMiddleware resolves the bearer session token to a user.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
			return
		}

		user, err := s.store.SessionUser(r.Context(), token)
		if err != nil {
			s.logger.Warn("unauthorized API request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Session expired or invalid")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// requireUploadRole rejects users whose role may not change attachments.
func (s *Server) requireUploadRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := userFrom(r.Context())
		if u == nil || !session.CanUpload(u.Role, s.cfg.Console.UploadRoles) {
			writeError(w, http.StatusForbidden, "forbidden", "Your role may not upload files")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
