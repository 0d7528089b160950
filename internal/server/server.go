// Package server is the composition root: it opens storage, builds the
// upstream clients, services and handlers, and mounts them on one router.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → sqlite.DB (every repository)      → services → handlers → routes
//	  → cache store (memory | badger)     ↗
//	  → upstream.Clients (one Caller each) ↗
//
// Handlers only see services through small interfaces, services only see
// repository interfaces. Nothing below this package knows how the others
// are built.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/devcompass/internal/auth"
	"github.com/sakif/devcompass/internal/cache"
	"github.com/sakif/devcompass/internal/config"
	"github.com/sakif/devcompass/internal/handler"
	"github.com/sakif/devcompass/internal/middleware"
	"github.com/sakif/devcompass/internal/model"
	sqliteRepo "github.com/sakif/devcompass/internal/repository/sqlite"
	"github.com/sakif/devcompass/internal/service"
	"github.com/sakif/devcompass/internal/upstream"
)

// Server owns the HTTP router and every resource that must be closed on
// shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	badger *badger.DB // nil with the memory cache backend
}

// New opens storage and wires the application.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := ensureDir(cfg.Database.Path); err != nil {
		return nil, err
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	statsStore, cooldownStore, err := s.openCacheStores()
	if err != nil {
		db.Close()
		return nil, err
	}

	tokens, err := s.tokenService()
	if err != nil {
		s.Close()
		return nil, err
	}

	clients := upstream.NewClients(cfg.Upstream, cfg.Insight, logger)
	s.setupRoutes(s.buildHandlers(clients, statsStore, cooldownStore, tokens), tokens)
	return s, nil
}

// ensureDir creates the parent directory of a file database.
func ensureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

// openCacheStores returns the store behind the stats cache and the one
// behind the refresh cooldown. With badger both share one DB under
// different key prefixes. In memory the cooldown gets its own store so
// that stats traffic can never evict a user's cooldown.
func (s *Server) openCacheStores() (cache.Store, cache.Store, error) {
	cfg := s.config.Cache
	if cfg.Backend == config.CacheBackendBadger {
		bdb, err := cache.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		s.badger = bdb
		return cache.NewBadgerStore(bdb, "stats:"), cache.NewBadgerStore(bdb, "cooldown:"), nil
	}
	return cache.NewMemoryStore(cfg.Capacity), cache.NewMemoryStore(cfg.Capacity), nil
}

func (s *Server) tokenService() (*auth.TokenService, error) {
	secret := s.config.Auth.JWTSecret
	if secret == "" {
		s.logger.Warn("auth.jwt_secret not set, using a random secret: sessions end on restart")
		secret = uuid.NewString() + uuid.NewString()
	}
	tokens, err := auth.NewTokenService(secret, s.config.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	return tokens, nil
}

type handlers struct {
	auth      *handler.AuthHandler
	handles   *handler.HandleHandler
	recs      *handler.RecommendationHandler
	dashboard *handler.DashboardHandler
	github    *handler.GithubHandler
	insight   *handler.InsightHandler
	profile   *handler.ProfileHandler
	signIn    bool
}

func (s *Server) buildHandlers(clients *upstream.Clients, statsStore, cooldownStore cache.Store, tokens *auth.TokenService) handlers {
	cfg := s.config
	log := s.logger

	statsCache := cache.NewStatsCache(statsStore, cfg.Cache.TTLs(), log)
	stats := service.NewStatsFetcher(statsCache, clients.Codeforces, clients.LeetCode, clients.Github, clients.AtCoder)

	handleSvc := service.NewHandleService(s.db, map[model.Platform]service.ProfileTextSource{
		model.PlatformCodeforces: clients.Codeforces,
		model.PlatformLeetCode:   clients.LeetCode,
		model.PlatformGitHub:     clients.Github,
	}, log)
	ledgerSvc := service.NewLedgerService(s.db, s.db, log)
	recSvc := service.NewRecommendationService(s.db, s.db, s.db, stats, ledgerSvc, nil, log)
	githubSvc := service.NewGithubService(s.db, s.db, stats, log)
	dashboardSvc := service.NewDashboardService(s.db, stats, recSvc, githubSvc, log)
	profileSvc := service.NewProfileService(s.db, log)
	lookupSvc := service.NewLookupService(stats)
	insightSvc := service.NewInsightService(s.db, s.db, s.db, dashboardSvc, stats, clients.Insight,
		cache.NewCooldown(cooldownStore, cfg.Insight.Cooldown), log)

	var signIn handler.GitHubSignIn
	if cfg.Auth.GithubClientID != "" {
		signIn = auth.NewGitHubProvider(cfg.Auth.GithubClientID, cfg.Auth.GithubClientSecret, cfg.Auth.GithubCallbackURL)
	} else {
		log.Warn("auth.github_client_id not set, GitHub sign-in is disabled")
	}

	return handlers{
		auth:      handler.NewAuthHandler(signIn, tokens, handleSvc, cfg.Auth.CookieSecure, log),
		handles:   handler.NewHandleHandler(handleSvc, log),
		recs:      handler.NewRecommendationHandler(recSvc, ledgerSvc, log),
		dashboard: handler.NewDashboardHandler(dashboardSvc, log),
		github:    handler.NewGithubHandler(githubSvc, log),
		insight:   handler.NewInsightHandler(insightSvc, log),
		profile:   handler.NewProfileHandler(profileSvc, lookupSvc, log),
		signIn:    signIn != nil,
	}
}

// setupRoutes mounts every route.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz                                     liveness (pings sqlite)
//	GET  /metrics                                     prometheus
//	GET  /auth/github/login, /auth/github/callback    sign-in (when configured)
//	POST /auth/logout
//	/api/*                                            rate limited per IP, RequireAuth
//
// MIDDLEWARE ORDER: RequestID before Logger so every log line has the id,
// RealIP before httprate so limits key on the client and not the proxy.
func (s *Server) setupRoutes(h handlers, tokens *auth.TokenService) {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	if h.signIn {
		r.Get("/auth/github/login", h.auth.HandleGitHubLogin)
		r.Get("/auth/github/callback", h.auth.HandleGitHubCallback)
	}
	r.Post("/auth/logout", h.auth.HandleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.config.Server.RateLimit, s.config.Server.RateWindow))
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", h.auth.HandleMe)
		r.Get("/dashboard", h.dashboard.HandleDashboard)

		r.Get("/recommendations/codeforces", h.recs.HandleCodeforces)
		r.Get("/recommendations/leetcode", h.recs.HandleLeetCode)
		r.Post("/leetcode/bulk-import", h.recs.HandleBulkImport)

		r.Get("/handles", h.handles.HandleList)
		r.Put("/handles/{platform}", h.handles.HandleLink)
		r.Post("/handles/{platform}/token", h.handles.HandleIssueToken)
		r.Post("/handles/{platform}/verify", h.handles.HandleVerify)

		r.Get("/github/report", h.github.HandleReport)
		r.Get("/github/recommendations", h.github.HandleActive)
		r.Post("/github/recommendations/{id}/dismiss", h.github.HandleDismiss)
		r.Post("/github/recommendations/{id}/complete", h.github.HandleComplete)

		r.Post("/insights/refresh", h.insight.HandleRefresh)
		r.Get("/insights", h.insight.HandleLatest)

		r.Get("/profile", h.profile.HandleGet)
		r.Put("/profile/goal", h.profile.HandleSetGoal)
		r.Get("/stats/{platform}/{handle}", h.profile.HandleLookup)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the database and the badger store.
func (s *Server) Close() error {
	var errs []error
	if s.badger != nil {
		if err := s.badger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing badger: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for
// up to server.shutdown_timeout and closes storage.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	cfg := s.config.Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", cfg.Port),
			slog.String("database", s.config.Database.Path),
			slog.String("cache_backend", s.config.Cache.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
