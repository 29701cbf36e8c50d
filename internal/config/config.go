// Package config holds the two JSON configuration shapes from spec.md §6
// and loads them with viper, bound to each binary's cobra flags.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Coordinator is the coordinator binary's config file shape:
// {"port": ..., "admin_key": "..."}.
type Coordinator struct {
	Port     int    `mapstructure:"port"`
	AdminKey string `mapstructure:"admin_key"`
	RedisURL string `mapstructure:"redis_url"`
	ImageDir string `mapstructure:"image_dir"`
}

// DefaultCoordinator returns the coordinator's baseline configuration,
// overridden by whatever the loaded file sets.
func DefaultCoordinator() Coordinator {
	return Coordinator{
		Port:     8080,
		RedisURL: "redis://localhost:6379/0",
		ImageDir: "./images",
	}
}

// LoadCoordinator reads path (if non-empty) as JSON into a Coordinator,
// starting from DefaultCoordinator.
func LoadCoordinator(path string) (Coordinator, error) {
	cfg := DefaultCoordinator()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read coordinator config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse coordinator config %s: %w", path, err)
	}
	return cfg, nil
}

// Worker is the worker binary's config file shape:
// {"host": ..., "key": ..., "drivers": [...], "tasks": ...}. An empty
// Drivers list means direct-HTTP mode: Tasks direct-fetch tasks and no
// headless browser (spec.md §6).
type Worker struct {
	Host    string   `mapstructure:"host"`
	Key     string   `mapstructure:"key"`
	Drivers []string `mapstructure:"drivers"`
	Tasks   int      `mapstructure:"tasks"`
}

// DefaultWorker returns the worker's baseline configuration.
func DefaultWorker() Worker {
	return Worker{Tasks: 1}
}

// LoadWorker reads path (if non-empty) as JSON into a Worker, starting
// from DefaultWorker.
func LoadWorker(path string) (Worker, error) {
	cfg := DefaultWorker()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read worker config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse worker config %s: %w", path, err)
	}
	if cfg.Tasks <= 0 {
		cfg.Tasks = 1
	}
	return cfg, nil
}

// TaskCount is the number of worker tasks to run: one per configured
// driver, or cfg.Tasks direct-fetch tasks when no drivers are configured.
func (w Worker) TaskCount() int {
	if len(w.Drivers) > 0 {
		return len(w.Drivers)
	}
	return w.Tasks
}
