// Package container wires the forcing workflow: ordered initialization of
// storage, notifier, workflow, workers and HTTP, with reverse-order teardown.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/forcing-workflow/internal/domain/policy"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Lark notifier configuration
	Lark LarkConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig

	// Policy is the validated authorization policy handed to the engine
	Policy *policy.Policy
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or database.MemoryPath
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// LarkConfig holds Lark notifier settings.
type LarkConfig struct {
	// Enabled turns the IM notifier on
	Enabled bool

	AppID     string
	AppSecret string

	// BaseURL overrides the open platform endpoint
	BaseURL string

	// Chats routes each role's notifications to a group chat
	Chats map[policy.Role]string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	SLAEnabled       bool
	SLAPollInterval  time.Duration
	SLABatchSize     int
	SLAHorizon       time.Duration
	SLAFollowUpAfter time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/forcing.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Version:      "dev",
		},
		Worker: WorkerConfig{
			SLAEnabled:       true,
			SLAPollInterval:  time.Minute,
			SLABatchSize:     50,
			SLAHorizon:       48 * time.Hour,
			SLAFollowUpAfter: 24 * time.Hour,
		},
		Policy: policy.Default(),
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if err := c.Policy.Validate(); err != nil {
		return err
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}

	return nil
}
