package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 8*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Client.ExpiryCheckInterval)
	assert.Equal(t, "json", cfg.Logger.Format)

	assert.Error(t, cfg.ValidateServer(), "server needs a jwt secret")
	assert.NoError(t, cfg.ValidateClient())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
auth:
  token_ttl: 1h
client:
  base_url: http://file.example:1234
`), 0o600))

	t.Setenv("PO_JWT_SECRET", secret)
	t.Setenv("PO_BASE_URL", "https://env.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, secret, cfg.Auth.JWTSecret)
	assert.Equal(t, "https://env.example", cfg.Client.BaseURL, "environment wins over the file")
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PO_DATABASE_PATH=/tmp/from-dotenv.db\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PO_DATABASE_PATH") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidateClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"relative url", func(c *Config) { c.Client.BaseURL = "localhost:8080" }, true},
		{"ftp url", func(c *Config) { c.Client.BaseURL = "ftp://example.com" }, true},
		{"no session file", func(c *Config) { c.Client.SessionFile = "" }, true},
		{"zero interval", func(c *Config) { c.Client.ExpiryCheckInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Client: ClientConfig{
				BaseURL:             "http://localhost:8080",
				SessionFile:         "/tmp/session",
				ExpiryCheckInterval: time.Second,
			}}
			tt.mutate(cfg)

			err := cfg.ValidateClient()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "po.db"},
		Auth:     AuthConfig{JWTSecret: secret, TokenTTL: time.Hour},
	}
	require.NoError(t, cfg.ValidateServer())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.ValidateServer())

	cfg.Server.Port = 8080
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.ValidateServer())
}
