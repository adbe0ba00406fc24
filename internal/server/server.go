// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects repositories, services,
// handlers and middleware, and decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server and its background jobs start and stop
//
// WHY SEPARATE FROM main.go?
// Tests build the whole router with New and drive it through Handler()
// without binding a port. main.go only loads config and picks the
// infrastructure (log sink, Redis or memory rate limiting).
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB → services → handlers → chi routes
//
// This is the "composition root" pattern: every dependency is wired here and
// nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/gthanks/internal/auth"
	"github.com/sakif/gthanks/internal/config"
	"github.com/sakif/gthanks/internal/handler"
	"github.com/sakif/gthanks/internal/mailer"
	"github.com/sakif/gthanks/internal/metrics"
	"github.com/sakif/gthanks/internal/middleware"
	"github.com/sakif/gthanks/internal/ratelimit"
	sqliteRepo "github.com/sakif/gthanks/internal/repository/sqlite"
	"github.com/sakif/gthanks/internal/service"
)

const (
	shutdownTimeout = 30 * time.Second

	mailQueueSize = 100
	mailWorkers   = 2
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the rate limit store. Close
// releases both; Start calls it on the way out.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
	limiter ratelimit.Store
	cleanup *service.CleanupService

	provider  auth.OAuthProvider
	mail      mailer.Mailer
	mailQueue *mailer.Queue
	passwords *auth.PasswordService
}

// Option customises a Server. Production uses the defaults; tests swap in
// fakes for the parts that talk to the outside world.
type Option func(*Server)

// WithOAuthProvider replaces the GitHub provider built from the config.
func WithOAuthProvider(p auth.OAuthProvider) Option {
	return func(s *Server) { s.provider = p }
}

// WithMailer replaces the mailer picked by cfg.MailMode. The mailer is
// called synchronously; no background queue is put in front of it.
func WithMailer(m mailer.Mailer) Option {
	return func(s *Server) { s.mail = m }
}

// WithRateLimitStore sets the store behind the reservation and unlock
// limits. Without it an in-memory store is used, or none at all when the
// configured limit is disabled.
func WithRateLimitStore(store ratelimit.Store) Option {
	return func(s *Server) { s.limiter = store }
}

// WithPasswordService overrides the bcrypt settings for list passwords.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

// New opens the database and builds the router. From the moment New is
// called the server owns a rate limit store passed with WithRateLimitStore:
// it is closed by Close, or right away when New fails.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if err := s.setDefaults(); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setDefaults() error {
	if s.provider == nil {
		gh := s.config.GitHub
		s.provider = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
	}
	if s.mail == nil {
		switch s.config.MailMode {
		case "capture":
			s.mail = mailer.NewCaptureMailer()
		default:
			s.mailQueue = mailer.NewQueue(mailer.NewLogMailer(s.logger), mailQueueSize, mailWorkers, s.logger)
			s.mail = s.mailQueue
		}
	}
	if s.passwords == nil {
		s.passwords = auth.NewPasswordService()
	}

	limit := ratelimit.Limit{RPS: s.config.RateLimit.RPS, Burst: s.config.RateLimit.Burst}
	if s.limiter == nil && !limit.Disabled() {
		store, err := ratelimit.NewMemoryStore(limit, ratelimit.DefaultMemoryKeys)
		if err != nil {
			return fmt.Errorf("creating rate limiter: %w", err)
		}
		s.limiter = store
	}
	return nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz, /metrics
//	GET    /auth/github/login, /auth/github/callback; POST /auth/logout
//	       /api/...                 anonymous-friendly routes (OptionalAuth)
//	       /api/... (group)         signed-in routes (RequireAuth)
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID so every log line of a request can be tied together
//  2. RealIP before anything keys on the client address
//  3. Recoverer turns panics into 500s
//  4. Logger and Metrics see the final status
//  5. CORS answers preflights before routing
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}

	// === Services ===
	// *sqliteRepo.DB implements every repository interface, so the same
	// value is handed to each service under the interface it needs.
	db := s.db
	perms := service.NewPermissionService(db, db)
	audit := service.NewAuditService(db, s.logger)

	authService := service.NewAuthService(db, tokens, s.config.AdminLogins, s.logger)
	wishService := service.NewWishService(db, db, perms, audit, s.logger)
	listService := service.NewListService(db, db, db, perms, s.passwords, audit, s.logger)
	membershipService := service.NewMembershipService(db, db, db, perms, audit, s.logger)
	reservationService := service.NewReservationService(db, db, db, perms, audit, s.mail, s.metrics, s.logger)
	vanityService := service.NewVanityService(db, db, db, perms, tokens, s.passwords, audit, s.logger)
	adminService := service.NewAdminService(db, audit, s.logger)
	s.cleanup = service.NewCleanupService(db, s.config.AuditRetention.Std(), s.metrics, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(s.provider, authService, s.config.SecureCookies, s.logger)
	wishHandler := handler.NewWishHandler(wishService, membershipService, s.logger)
	listHandler := handler.NewListHandler(listService, membershipService, vanityService, s.logger)
	reservationHandler := handler.NewReservationHandler(reservationService, s.logger)
	userHandler := handler.NewUserHandler(vanityService, adminService, s.logger)
	publicHandler := handler.NewPublicHandler(vanityService, s.config.SecureCookies, s.logger)
	permissionHandler := handler.NewPermissionHandler(perms, s.logger)
	opsHandler := handler.NewOpsHandler(db, s.cleanup, s.config.CronSecret, s.logger)

	// === Ops Routes ===
	s.router.Get("/healthz", opsHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	// === Auth Routes ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		// Anonymous visitors may reserve, unlock and browse public lists.
		r.With(s.rateLimit("reserve")).Post("/wishes/{wishId}/reservation", reservationHandler.HandleCreate)
		r.Delete("/wishes/{wishId}/reservation", reservationHandler.HandleDelete)
		r.Post("/reservations/status", reservationHandler.HandleStatus)

		r.Get("/public-profile/{username}", publicHandler.HandleProfile)
		r.Get("/public-profile/{username}/{slug}", publicHandler.HandleList)
		r.With(s.rateLimit("unlock")).Post("/public-profile/{username}/{slug}/access", publicHandler.HandleUnlock)

		r.Post("/cron/cleanup", opsHandler.HandleCleanup)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Route("/wishes", func(r chi.Router) {
				r.Get("/", wishHandler.HandleList)
				r.Post("/", wishHandler.HandleCreate)
				r.Get("/{wishId}", wishHandler.HandleGet)
				r.Put("/{wishId}", wishHandler.HandleUpdate)
				r.Delete("/{wishId}", wishHandler.HandleDelete)
				r.Put("/{wishId}/memberships", wishHandler.HandleUpdateMemberships)
				r.Get("/{wishId}/permissions", permissionHandler.HandleWish)
			})

			r.Route("/lists", func(r chi.Router) {
				r.Get("/", listHandler.HandleList)
				r.Post("/", listHandler.HandleCreate)
				r.Get("/{listId}", listHandler.HandleGet)
				r.Put("/{listId}", listHandler.HandleUpdate)
				r.Delete("/{listId}", listHandler.HandleDelete)
				r.Put("/{listId}/slug", listHandler.HandleSetSlug)
				r.Put("/{listId}/password", listHandler.HandleSetPassword)
				r.Post("/{listId}/wishes", listHandler.HandleAddWishes)
				r.Post("/{listId}/wishes/remove", listHandler.HandleRemoveWishes)
				r.Get("/{listId}/admins", listHandler.HandleListAdmins)
				r.Post("/{listId}/admins", listHandler.HandleAddAdmin)
				r.Delete("/{listId}/admins/{userId}", listHandler.HandleRemoveAdmin)
				r.Get("/{listId}/permissions", permissionHandler.HandleList)
			})

			r.Put("/user/username", userHandler.HandleSetUsername)

			r.Route("/admin", func(r chi.Router) {
				r.Put("/users/{userId}/username", userHandler.HandleAdminSetUsername)
				r.Put("/users/{userId}/vanity-access", userHandler.HandleSetVanityAccess)
				r.Get("/audit", userHandler.HandleAudit)
			})
		})
	})

	return nil
}

// rateLimit returns the limiter middleware for scope, or a pass-through when
// rate limiting is disabled.
func (s *Server) rateLimit(scope string) func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(s.limiter, scope, s.metrics, s.logger)
}

// Handler exposes the router so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP and runs the periodic cleanup until ctx is cancelled,
// then shuts both down.
//
// GRACEFUL SHUTDOWN:
//  1. ctx is cancelled (main wires it to SIGINT/SIGTERM)
//  2. The HTTP server stops accepting connections and in-flight requests get
//     up to 30 seconds to finish
//  3. The cleanup loop returns
//  4. Queued emails are flushed, then the database and rate limit store
//     are closed
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	if s.mailQueue != nil {
		s.mailQueue.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.cleanup.Start(ctx, s.config.CleanupInterval.Std())
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}

// Close flushes the mail queue and releases the database and, when it holds
// connections, the rate limit store.
func (s *Server) Close() error {
	if s.mailQueue != nil {
		s.mailQueue.Stop()
	}

	var errs []error
	if c, ok := s.limiter.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
