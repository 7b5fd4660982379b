// Package server
//
// @title memberdesk
// @version 1.0
// @description Super admin console for the membership API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/memberdesk/memberdesk/internal/auth"
	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/config"
	"github.com/memberdesk/memberdesk/internal/models"
	"github.com/memberdesk/memberdesk/internal/resources"
	"github.com/memberdesk/memberdesk/internal/storage"
)

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	config      *config.Config
	logger      zerolog.Logger
	validator   *validator.Validate
	kv          storage.KV
	api         *client.Client
	session     *auth.Store
	binding     *browserBinding
	cookies     cookie.Store
	views       *resources.Views
	guard       *RouteGuard
	revalidator *auth.Revalidator
	registry    *prometheus.Registry
	httpMetrics *httpMetrics
	version     string
}

// New creates a new server instance backed by the configured storage driver
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	driver := cfg.StorageDriver(config.DriverSQLite)
	kv, err := storage.Open(storage.Options{
		Driver:      driver,
		DatabaseURL: cfg.Storage.DatabaseURL,
		FilePath:    cfg.Storage.FilePath,
		Passphrase:  cfg.Storage.Key,
		Scope:       cfg.API.BaseURL,
		Logger:      zlog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", driver, err)
	}

	s, err := NewWithStorage(cfg, kv, zlog, version)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStorage wires the server around an already opened KV
func NewWithStorage(cfg *config.Config, kv storage.KV, zlog zerolog.Logger, version string) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tokens := storage.NewTokenStore(kv)

	api := client.New(cfg.API.BaseURL, tokens,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(zlog.With().Str("component", "api_client").Logger()),
		client.WithMetrics(client.NewMetrics(registry)),
	)

	cookies, err := newCookieStore(kv, cfg.Web.SecureCookies)
	if err != nil {
		return nil, err
	}
	binding := newBrowserBinding(kv, zlog.With().Str("component", "browser_binding").Logger())

	session := auth.New(api, tokens, auth.NewKVPersister(kv),
		auth.WithLogger(zlog.With().Str("component", "session").Logger()),
		auth.WithMetrics(auth.NewMetrics(registry)),
		auth.WithSignOutHook(binding.Revoke),
	)
	api.OnUnauthorized(session.Invalidate)

	if !session.Snapshot().IsAuthenticated {
		binding.Revoke()
	}

	s := &Server{
		config:      cfg,
		logger:      zlog,
		validator:   models.NewValidator(),
		kv:          kv,
		api:         api,
		session:     session,
		binding:     binding,
		cookies:     cookies,
		views:       resources.NewViews(api, zlog),
		registry:    registry,
		httpMetrics: newHTTPMetrics(registry),
		version:     version,
	}

	s.guard = NewRouteGuard(session, s.browserBound, cfg.Session.GuardSettleWait, zlog)

	if cfg.Session.RevalidateSchedule != "" {
		r, err := auth.NewRevalidator(session, cfg.Session.RevalidateSchedule, zlog)
		if err != nil {
			return nil, err
		}
		s.revalidator = r
	}

	if err := s.setupRouter(); err != nil {
		return nil, err
	}
	return s, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() error {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(sessions.Sessions(sessionCookieName, s.cookies))

	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	s.router.SetHTMLTemplate(tmpl)

	// Public
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	s.router.GET("/login", s.loginPage)
	s.router.POST("/login", s.login)

	// Read-only session status for same-origin scripts and tooling
	sessionAPI := s.router.Group("/api")
	sessionAPI.Use(cors.New(cors.Config{
		AllowOrigins:     s.allowOrigins(),
		AllowMethods:     []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	{
		sessionAPI.GET("/session", s.getSession)
	}

	// Everything else sits behind the route guard
	protected := s.router.Group("/")
	protected.Use(s.guard.Middleware())
	{
		protected.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/dashboard")
		})
		protected.POST("/logout", s.logout)
		protected.GET("/dashboard", s.dashboard)

		protected.GET("/applications", s.listApplications)
		protected.GET("/applications/:id", s.showApplication)
		protected.POST("/applications/:id/approve", s.approveApplication)
		protected.POST("/applications/:id/reject", s.rejectApplication)

		protected.GET("/members", s.listMembers)
		protected.GET("/members/live", s.liveMemberSearch)
		protected.GET("/members/:id", s.showMember)

		protected.GET("/payments", s.listPayments)
		protected.GET("/payments/:id", s.showPayment)
		protected.POST("/payments/:id", s.updatePayment)
		protected.POST("/payments/:id/approve", s.approvePayment)
		protected.POST("/payments/:id/reject", s.rejectPayment)

		protected.GET("/self-declarations", s.listSelfDeclarations)
		protected.GET("/self-declarations/:id", s.showSelfDeclaration)
		protected.POST("/self-declarations/:id/approve", s.approveSelfDeclaration)
		protected.POST("/self-declarations/:id/reject", s.rejectSelfDeclaration)
	}

	s.router.NoRoute(s.notFound)
	return nil
}

func (s *Server) allowOrigins() []string {
	if len(s.config.Web.AllowOrigins) > 0 {
		return s.config.Web.AllowOrigins
	}
	return []string{"http://localhost:5173"}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "memberdesk-web",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Session returns the process-wide session store
func (s *Server) Session() *auth.Store {
	return s.session
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	addr := s.config.Web.Address

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.API.Timeout + 30*time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.revalidator != nil {
		s.revalidator.Start()
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", addr).Str("api", s.api.BaseURL()).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		s.close()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		s.close()
		return err
	}

	s.close()
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

func (s *Server) close() {
	if s.revalidator != nil {
		s.revalidator.Stop()
	}
	// Flush the session store (WAL for sqlite)
	if err := s.kv.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing session storage")
	}
}
