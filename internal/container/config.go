// Package container wires the purchase order server and client from configuration
// and owns their startup and teardown order.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the server Container
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds token signing and password hashing settings
type AuthConfig struct {
	JWTSecret  string
	Issuer     string
	TokenTTL   time.Duration
	BcryptCost int
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	LoginRatePerSecond float64
	LoginBurst         int
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}
	return nil
}

// ClientConfig holds settings of the command line client
type ClientConfig struct {
	BaseURL      string
	SessionFile  string
	Timeout      time.Duration
	FetchWorkers int
}
