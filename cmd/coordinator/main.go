// Command coordinator runs the badge crawler's coordinator service: the
// HTTP API in internal/api, backed by Redis, that hands out work items to
// a worker fleet and ingests their reports.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cametumbling/badge-crawler/internal/api"
	"github.com/cametumbling/badge-crawler/internal/authn"
	"github.com/cametumbling/badge-crawler/internal/badge"
	"github.com/cametumbling/badge-crawler/internal/config"
	"github.com/cametumbling/badge-crawler/internal/queue"
	"github.com/cametumbling/badge-crawler/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run the badge crawler coordinator",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a JSON config file (port, admin_key, redis_url, image_dir)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadCoordinator(configPath)
	if err != nil {
		return err
	}
	if cfg.AdminKey == "" {
		return fmt.Errorf("coordinator: admin_key must be set in config")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("coordinator: build logger: %w", err)
	}
	defer log.Sync()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("coordinator: parse redis_url: %w", err)
	}
	rdb := redis.NewClient(opts)
	db := store.New(rdb)

	badges, err := badge.New(cfg.ImageDir)
	if err != nil {
		return fmt.Errorf("coordinator: open badge store: %w", err)
	}

	auth := authn.New(db, cfg.AdminKey)
	q := queue.New(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Refresh(ctx); err != nil {
		log.Warn("startup queue refresh failed", zap.Error(err))
	}

	srv := api.New(db, auth, q, badges, log)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Handler(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("coordinator listening", zap.Int("port", cfg.Port))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("coordinator: serve: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("coordinator: shutdown: %w", err)
		}
		log.Info("shutdown complete")
		return nil
	}
}
