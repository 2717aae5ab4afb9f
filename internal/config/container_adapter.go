package config

import (
	"fmt"

	"github.com/garyjia/forcing-workflow/internal/container"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig(version string) (*container.Config, error) {
	p, err := c.Policy.Build()
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	chats := make(map[policy.Role]string, len(c.Lark.Chats))
	for raw, chatID := range c.Lark.Chats {
		role, err := policy.ParseRole(raw)
		if err != nil {
			return nil, fmt.Errorf("lark.chats: %w", err)
		}
		chats[role] = chatID
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Lark: container.LarkConfig{
			Enabled:   c.Lark.Enabled,
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			BaseURL:   c.Lark.BaseURL,
			Chats:     chats,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			Version:      version,
		},
		Worker: container.WorkerConfig{
			SLAEnabled:       c.SLA.Enabled,
			SLAPollInterval:  c.SLA.PollInterval,
			SLABatchSize:     c.SLA.BatchSize,
			SLAHorizon:       c.SLA.Horizon,
			SLAFollowUpAfter: c.SLA.FollowUpAfter,
		},
		Policy: p,
	}, nil
}
