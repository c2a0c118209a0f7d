package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/config"
	"github.com/hellausefulsoftware/cleaner/internal/decision"
	"github.com/hellausefulsoftware/cleaner/internal/delivery"
	"github.com/hellausefulsoftware/cleaner/internal/executor"
	"github.com/hellausefulsoftware/cleaner/internal/github"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"github.com/hellausefulsoftware/cleaner/internal/server"
	"github.com/hellausefulsoftware/cleaner/internal/webhook"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags win over the environment when given explicitly
	flags := cmd.Flags()
	level := cfg.Logging.Level
	if flags.Changed("log-level") {
		level, _ = flags.GetString("log-level")
	}
	jsonLogs := cfg.Logging.JSONFormat
	if flags.Changed("log-json") {
		jsonLogs, _ = flags.GetBool("log-json")
	}
	logging.Initialize(&logging.Config{
		Level:      logging.ParseLevel(level),
		Output:     os.Stdout,
		JSONFormat: jsonLogs,
	})

	logging.Info("Starting cleaner", "env", cfg.Env, "port", cfg.Port, "dry_run", cfg.DryRun)

	ctx := context.Background()

	rules, err := loadRules(cfg.Rules.File)
	if err != nil {
		return err
	}
	policy, err := decision.NewPolicy(rules, time.Now)
	if err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}

	store, closeStore, err := newDeliveryStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var provider vcs.ClientProvider
	if !cfg.DryRun || cfg.UsesAppAuth() || cfg.GitHub.Token != "" {
		provider, err = github.NewProvider(cfg)
		if err != nil {
			return err
		}
	}

	router := webhook.NewRouter()
	webhook.NewIssueHandler(provider, policy, executor.New(
		executor.WithDryRun(cfg.DryRun),
		executor.WithCloseMessages(rules.AutoClose.Messages),
	)).Register(router)

	pipeline := webhook.NewPipeline(
		[]byte(cfg.Webhook.Secret),
		delivery.NewDeduplicator(store, cfg.Dedup.Retention),
		router,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(pipeline, server.Options{
		Env:            cfg.Env,
		ProcessTimeout: cfg.Webhook.ProcessTimeout,
	})

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Webhook.ProcessTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Warn("Received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Wait(shutdownCtx); err != nil {
		logging.Error("Abandoning in-flight webhooks", "error", err)
	}

	logging.Info("Shutdown complete")
	return nil
}

func loadRules(path string) (decision.Rules, error) {
	if path == "" {
		return decision.DefaultRules(), nil
	}
	rules, err := decision.LoadRules(path)
	if err != nil {
		return decision.Rules{}, err
	}
	logging.Info("Loaded rules", "file", path, "repositories", len(rules.Repositories))
	return rules, nil
}

// newDeliveryStore picks Redis when configured so replicas share one
// delivery set, and memory otherwise
func newDeliveryStore(ctx context.Context, cfg *config.Config) (delivery.Store, func(), error) {
	if cfg.Dedup.RedisURL == "" {
		logging.Info("Using in-memory delivery store")
		return delivery.NewMemoryStore(), func() {}, nil
	}

	store, client, err := delivery.NewRedisStoreFromURL(ctx, cfg.Dedup.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logging.Info("Using redis delivery store")
	return store, func() {
		if err := client.Close(); err != nil {
			logging.Warn("Failed to close redis client", "error", err)
		}
	}, nil
}
