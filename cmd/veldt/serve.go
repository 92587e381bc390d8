package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/veldt-dev/veldt/internal/adapters/http"
	"github.com/veldt-dev/veldt/internal/config"
	"github.com/veldt-dev/veldt/internal/logging"
	"github.com/veldt-dev/veldt/pkg/adapters/memory"
	redisAdapter "github.com/veldt-dev/veldt/pkg/adapters/redis"
	"github.com/veldt-dev/veldt/pkg/extension"
	"github.com/veldt-dev/veldt/pkg/pipeline"
	"github.com/veldt-dev/veldt/pkg/session"
	"github.com/veldt-dev/veldt/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JMAP HTTP server",
	Long:  `Starts the Veldt server, exposing the JMAP API, the session resource and metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := logging.New(slog.LevelInfo)

		st, err := buildStore(cfg)
		if err != nil {
			return err
		}

		// Bootstrap the root user before accepting traffic.
		if err := store.EnsureRootUser(cmd.Context(), st, logger); err != nil {
			return fmt.Errorf("bootstrapping root user: %w", err)
		}

		baseURL, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return fmt.Errorf("parsing base_url: %w", err)
		}

		registry := extension.NewRegistry(extension.NewCore(cfg.CoreCapabilities))

		handler := httpAdapter.NewHandler(
			pipeline.New(st, registry, logger),
			session.NewBuilder(st, registry, baseURL),
			registry,
			&httpAdapter.BasicAuthenticator{Users: st},
			cfg.CoreCapabilities,
			logger,
		)

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting server", "addr", srv.Addr, "baseUrl", cfg.BaseURL)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("killing server: %w", err)
				}
			}
			logger.Info("server stopped")
		}

		return nil
	},
}

func buildStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case config.StoreRedis:
		opts := []redisAdapter.Option{}
		if cfg.Store.Redis.Prefix != "" {
			opts = append(opts, redisAdapter.WithPrefix(cfg.Store.Redis.Prefix))
		}
		return redisAdapter.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, opts...), nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
