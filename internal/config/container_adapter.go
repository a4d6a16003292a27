package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/garyjia/po-approval/internal/container"
)

// ToContainerConfig converts the file and environment config into the
// settings the server container is built from.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Auth: container.AuthConfig{
			JWTSecret:  c.Auth.JWTSecret,
			Issuer:     c.Auth.Issuer,
			TokenTTL:   c.Auth.TokenTTL,
			BcryptCost: c.Auth.BcryptCost,
		},
		Server: container.ServerConfig{
			Host:               c.Server.Host,
			Port:               c.Server.Port,
			ReadTimeout:        c.Server.ReadTimeout,
			WriteTimeout:       c.Server.WriteTimeout,
			LoginRatePerSecond: c.Auth.LoginRatePerSecond,
			LoginBurst:         c.Auth.LoginBurst,
		},
	}
}

// ToClientConfig converts the client section, expanding a leading ~ in the
// session file path to the user's home directory.
func (c *Config) ToClientConfig() (container.ClientConfig, error) {
	path, err := expandHome(c.Client.SessionFile)
	if err != nil {
		return container.ClientConfig{}, err
	}
	return container.ClientConfig{
		BaseURL:      c.Client.BaseURL,
		SessionFile:  path,
		Timeout:      c.Client.Timeout,
		FetchWorkers: c.Client.FetchWorkers,
	}, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
