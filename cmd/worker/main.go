// Command worker runs a fleet of badge crawler tasks against a
// coordinator: either one browser-backed task per configured driver, or a
// pool of direct-HTTP tasks when no drivers are configured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cametumbling/badge-crawler/internal/browser"
	"github.com/cametumbling/badge-crawler/internal/config"
	"github.com/cametumbling/badge-crawler/internal/crawler"
	"github.com/cametumbling/badge-crawler/internal/platform/httpclient"
	"github.com/cametumbling/badge-crawler/internal/robots"
)

const navigationTimeout = 15 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a fleet of badge crawler worker tasks",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a JSON config file (host, key, drivers, tasks)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWorker(configPath)
	if err != nil {
		return err
	}
	if cfg.Host == "" {
		return fmt.Errorf("worker: host must be set in config")
	}
	if cfg.Key == "" {
		return fmt.Errorf("worker: key must be set in config")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("worker: build logger: %w", err)
	}
	defer log.Sync()

	httpClient := httpclient.New(httpclient.Config{UserAgent: httpclient.DefaultUserAgent})

	var drivers []*browser.Driver
	var tasks []*crawler.Task

	if len(cfg.Drivers) > 0 {
		for _, debuggerURL := range cfg.Drivers {
			d, err := browser.Launch(debuggerURL, navigationTimeout)
			if err != nil {
				closeDrivers(drivers)
				return fmt.Errorf("worker: launch driver %s: %w", debuggerURL, err)
			}
			drivers = append(drivers, d)
			tasks = append(tasks, newTask(cfg, httpClient, &crawler.DriverExtractor{Driver: d}, log))
		}
	} else {
		for i := 0; i < cfg.TaskCount(); i++ {
			tasks = append(tasks, newTask(cfg, httpClient, &crawler.HTTPExtractor{Client: httpClient}, log))
		}
	}

	fleet := crawler.NewFleet(tasks, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		fleet.Run(ctx)
		close(done)
	}()

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			log.Warn("fleet shutdown timeout exceeded, forcing exit")
		}
	case <-done:
	}

	closeDrivers(drivers)
	log.Info("shutdown complete")
	return nil
}

func newTask(cfg config.Worker, httpClient *httpclient.Client, extractor crawler.Extractor, log *zap.Logger) *crawler.Task {
	client := httpClient.HTTPClient()
	return &crawler.Task{
		CoordinatorHost: cfg.Host,
		APIKey:          cfg.Key,
		UserAgent:       httpclient.DefaultUserAgent,
		HTTPClient:      client,
		Robots:          robots.New(client, httpclient.DefaultUserAgent),
		Extractor:       extractor,
		Log:             log,
	}
}

func closeDrivers(drivers []*browser.Driver) {
	for _, d := range drivers {
		if err := d.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "worker: close driver: %v\n", err)
		}
	}
}
