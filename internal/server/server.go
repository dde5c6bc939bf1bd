package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/bot"
	"github.com/nao1215/storefront/internal/config"
	"github.com/nao1215/storefront/internal/csp"
	"github.com/nao1215/storefront/internal/i18n"
	"github.com/nao1215/storefront/internal/loader"
	"github.com/nao1215/storefront/internal/metrics"
	"github.com/nao1215/storefront/internal/request"
	"github.com/nao1215/storefront/internal/respond"
)

// ViolationStore persists CSP violation reports.
type ViolationStore interface {
	Insert(ctx context.Context, v csp.Violation) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Commerce request.Commerce
	Content  request.Content

	// Violations is optional. Without it POST /csp-report is not routed.
	Violations ViolationStore

	// Metrics is optional. Without it nothing is measured and /metrics is
	// not routed.
	Metrics *metrics.Registry

	Logger *slog.Logger
}

// Server serves storefront pages.
type Server struct {
	cfg      *config.Config
	deps     Deps
	logger   *slog.Logger
	engine   *gin.Engine
	locale   i18n.Locale
	policies *csp.Builder
	loader   *loader.Loader
	respond  *respond.Orchestrator
	preview  *previewGate
	now      func() time.Time
}

// New validates cfg and builds the routes.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	if deps.Commerce == nil || deps.Content == nil {
		return nil, ErrMissingBackends
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locale, err := cfg.Locale()
	if err != nil {
		return nil, err
	}
	policies, err := csp.NewBuilder(cfg.Directives, csp.Shop{
		CheckoutDomain: cfg.CheckoutDomain,
		StoreDomain:    cfg.StoreDomain,
	}, cfg.StudioOrigin)
	if err != nil {
		return nil, fmt.Errorf("content security policy: %w", err)
	}
	classifier, err := bot.New(cfg.BotPatterns...)
	if err != nil {
		return nil, err
	}

	loaderOpts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithDeferred(loader.FooterMenu(cfg.FooterMenuHandle)),
	}
	respondOpts := []respond.Option{respond.WithLogger(logger)}
	if deps.Metrics != nil {
		loaderOpts = append(loaderOpts, loader.WithObserver(deps.Metrics))
		respondOpts = append(respondOpts, respond.WithObserver(deps.Metrics))
	}

	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		locale:   locale,
		policies: policies,
		loader:   loader.New(loaderOpts...),
		respond:  respond.New(classifier, respondOpts...),
		now:      time.Now,
	}
	if cfg.PreviewEnabled() {
		s.preview = newPreviewGate(cfg.PreviewSecret, cfg.SessionSecret)
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger), recovery())
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/pages/:handle", s.handlePage)
	r.GET("/:locale/pages/:handle", s.handlePage)
	r.GET("/api/preview", s.handlePreview)
	r.GET("/api/preview/disable", s.handlePreviewDisable)
	if s.deps.Violations != nil {
		r.POST("/csp-report", s.handleCSPReport)
	}
	r.NoRoute(func(c *gin.Context) { c.String(http.StatusNotFound, "Not Found") })
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is done, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.cfg.ListenAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
