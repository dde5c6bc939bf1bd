package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/storefront/internal/backend"
	"github.com/nao1215/storefront/internal/cache"
	"github.com/nao1215/storefront/internal/commerce"
	"github.com/nao1215/storefront/internal/config"
	"github.com/nao1215/storefront/internal/content"
	"github.com/nao1215/storefront/internal/database"
	"github.com/nao1215/storefront/internal/log"
	"github.com/nao1215/storefront/internal/metrics"
	"github.com/nao1215/storefront/internal/server"
	"github.com/spf13/cobra"
)

// cspReportPath is where browsers post violation reports.
const cspReportPath = "/csp-report"

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve storefront pages",
		Long: `Serve starts the HTTP server.

Configuration is read from defaults, then the .storefront file (current
directory, home directory, or $XDG_CONFIG_HOME/storefront/config.yaml), then
the environment, then flags.

Examples:
  # Serve with configuration from the environment
  PUBLIC_STORE_DOMAIN=shop.example.com storefront serve

  # Listen on another address with JSON logs
  storefront serve -l :8080 --log-format json

  # Disable CSP violation storage
  storefront serve --db-dir ""`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .storefront in current or home directory)")
	cmd.Flags().StringP("listen", "l", "",
		fmt.Sprintf("Listen address (default %q)", config.DefaultListenAddress))
	cmd.Flags().String("log-format", "",
		fmt.Sprintf("Log format: text or json (default %q)", config.DefaultLogFormat))
	cmd.Flags().String("db-dir", "",
		"Directory of the CSP violation database; empty string disables storage")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(os.Stderr, cfg.LogFormat, getVerboseFlag(cmd), cfg.RedactKeys...)
	slog.SetDefault(logger)
	if cfg.ConfigFilePath != "" {
		logger.Info("loaded configuration", "path", cfg.ConfigFilePath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// buildServeConfig loads the configuration and applies flag overrides.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("log-format") {
		if cfg.LogFormat, err = cmd.Flags().GetString("log-format"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// serve wires the backends and runs the server until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := metrics.New()

	store, err := cache.NewStore(cfg.CacheSize)
	if err != nil {
		return err
	}
	httpClient := backend.NewHTTPClient(backend.HTTPOptions{
		Timeout:  cfg.BackendTimeout,
		RetryMax: cfg.RetryMax,
		Logger:   logger,
	})

	commerceClient, err := commerce.NewClient(commerce.Options{
		StoreDomain: cfg.StoreDomain,
		APIVersion:  cfg.StorefrontAPIVersion,
		AccessToken: cfg.StorefrontAPIToken,
		HTTPClient:  httpClient,
		Store:       store,
		Observer:    reg,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	contentClient, err := content.NewClient(content.Options{
		ProjectID:  cfg.SanityProjectID,
		Dataset:    cfg.SanityDataset,
		APIVersion: cfg.SanityAPIVersion,
		Token:      cfg.SanityAPIToken,
		UseCDN:     cfg.SanityUseCDN,
		HTTPClient: httpClient,
		Store:      store,
		Observer:   reg,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	deps := server.Deps{
		Commerce: commerceClient,
		Content:  contentClient,
		Metrics:  reg,
		Logger:   logger,
	}
	if path := cfg.DatabasePath(); path != "" {
		db, err := database.Open(path, database.DefaultOptions())
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("close violation database", "error", err)
			}
		}()
		logger.Info("storing csp reports", "path", db.Path())
		deps.Violations = db
		if cfg.Directives.ReportURI == "" {
			cfg.Directives.ReportURI = cspReportPath
		}
	}

	srv, err := server.New(cfg, deps)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
