// Package server wires the dependency graph and owns the HTTP lifecycle.
//
// This is the composition root: the database, repositories, services,
// middleware, and handlers are all constructed and connected here, so the
// rest of the codebase receives its dependencies explicitly instead of
// reaching for globals. Tests swap any layer by constructing it with fakes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lmoretti/pawfinder/internal/auth"
	"github.com/lmoretti/pawfinder/internal/config"
	"github.com/lmoretti/pawfinder/internal/handler"
	"github.com/lmoretti/pawfinder/internal/middleware"
	sqliteRepo "github.com/lmoretti/pawfinder/internal/repository/sqlite"
	"github.com/lmoretti/pawfinder/internal/service"
)

// sweepInterval is how often expired sessions are deleted. Validation
// already treats them as dead; the sweep only keeps the table compact.
const sweepInterval = time.Hour

// Server holds the HTTP router and the resources it must release on
// shutdown: the database and the rate limiter's goroutine.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	limiter  *middleware.AuthRateLimiter
	sessions *sqliteRepo.SessionDB
}

// New assembles the full dependency graph.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: db.Sessions(cfg.SessionLifetime),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures middleware and the route table.
//
// ROUTE STRUCTURE:
//
//	POST   /api/auth/register   → create account + session   (rate limited)
//	POST   /api/auth/login      → verify + session           (rate limited)
//	POST   /api/auth/logout     → invalidate + blank cookie
//	GET    /api/me              → current user               (auth required)
//	GET    /api/listings        → public list
//	GET    /api/listings/{id}   → public detail
//	POST   /api/listings        → create                     (auth required)
//	PUT    /api/listings/{id}   → update, owner only         (auth required)
//	DELETE /api/listings/{id}   → delete, owner only         (auth required)
//	GET    /api/my/listings     → caller's listings          (auth required)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP) // must precede the per-IP limiter
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Dependency chain: db → repositories → services → handlers.
	passwords := auth.NewPasswordService()
	cookies := auth.NewCookieCodec(s.cfg.SecureCookies)

	authSvc, err := service.NewAuthService(
		s.db.Users(),
		s.sessions,
		passwords,
		service.AuthConfig{
			SessionLifetime:   s.cfg.SessionLifetime,
			CommonPasswords:   s.cfg.CommonPasswords,
			DisposableDomains: s.cfg.DisposableDomains,
		},
		s.logger,
	)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	listingSvc := service.NewListingService(s.db.Listings(), s.logger)

	authHandler := handler.NewAuthHandler(authSvc, cookies, s.logger)
	listingHandler := handler.NewListingHandler(listingSvc, s.logger)

	requireAuth := auth.RequireAuth(authSvc)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if s.cfg.AuthRatePerMin > 0 {
				s.limiter = middleware.NewAuthRateLimiter(s.cfg.AuthRatePerMin, s.cfg.AuthBurst)
				r.Use(s.limiter.Middleware())
			}
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Get("/my/listings", listingHandler.HandleListMine)
			r.Post("/listings", listingHandler.HandleCreate)
			r.Put("/listings/{id}", listingHandler.HandleUpdate)
			r.Delete("/listings/{id}", listingHandler.HandleDelete)
		})

		r.Get("/listings", listingHandler.HandleList)
		r.Get("/listings/{id}", listingHandler.HandleGetByID)
	})

	return nil
}

// Handler exposes the router, mainly for httptest in integration tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, stop the sweeper
// and limiter, close the database.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s.sweepSessions(sweepCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// sweepSessions periodically deletes expired session rows.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("session sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.logger.Info("swept expired sessions", slog.Int64("count", n))
			}
		}
	}
}
