package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func() { viper.Reset() },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPort, cfg.Server.Port)
				assert.Equal(t, []string{DefaultOrigin}, cfg.Server.AllowedOrigins)
				assert.Equal(t, DefaultBaseURL, cfg.Model.BaseURL)
				assert.Equal(t, DefaultModel, cfg.Model.Model)
				assert.InDelta(t, DefaultTemperature, cfg.Model.Temperature, 1e-9)
				assert.Equal(t, DefaultTimeout, cfg.Model.Timeout)
				assert.Equal(t, int64(DefaultMaxConcurrent), cfg.Model.MaxConcurrent)
				assert.Equal(t, SchemaPolicyStrict, cfg.Prompt.SchemaPolicy)
				assert.True(t, cfg.Store.SeedDefaults)
			},
		},
		{
			name: "explicit zero temperature and disabled seeding",
			setup: func() {
				viper.Reset()
				viper.Set("model.temperature", 0.0)
				viper.Set("store.seed_defaults", false)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Zero(t, cfg.Model.Temperature)
				assert.False(t, cfg.Store.SeedDefaults)
			},
		},
		{
			name: "duration and trailing slash",
			setup: func() {
				viper.Reset()
				viper.Set("model.timeout", "15s")
				viper.Set("model.base_url", "http://localhost:11434/v1/")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 15*time.Second, cfg.Model.Timeout)
				assert.Equal(t, "http://localhost:11434/v1", cfg.Model.BaseURL)
			},
		},
		{
			name: "comma separated origins",
			setup: func() {
				viper.Reset()
				viper.Set("server.allowed_origins", []string{"http://localhost:3000, http://localhost:5173"})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "invalid port type",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "temperature out of range",
			setup: func() {
				viper.Reset()
				viper.Set("model.temperature", 3.5)
			},
			expectError: true,
		},
		{
			name: "lenient schema policy rejected",
			setup: func() {
				viper.Reset()
				viper.Set("prompt.schema_policy", "lenient")
			},
			expectError: true,
		},
		{
			name: "non http base url",
			setup: func() {
				viper.Reset()
				viper.Set("model.base_url", "ftp://models.example")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, ".component-builder.yml")
	content := `
server:
  port: 8088
  environment: production
model:
  model: gpt-4o-mini
  max_concurrent: 2
store:
  path: ` + filepath.Join(dir, "components.json") + `
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Model)
	assert.Equal(t, int64(2), cfg.Model.MaxConcurrent)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "localhost:8088", cfg.Addr())
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "port"},
		{"dangerous host", func(c *Config) { c.Server.Host = "localhost;rm" }, "dangerous character"},
		{"bad origin", func(c *Config) { c.Server.AllowedOrigins = []string{"javascript:x"} }, "allowed origin"},
		{"wildcard origin", func(c *Config) { c.Server.AllowedOrigins = []string{"*"} }, ""},
		{"unknown environment", func(c *Config) { c.Server.Environment = "staging" }, "environment"},
		{"empty model", func(c *Config) { c.Model.Model = " " }, "model identifier"},
		{"zero timeout", func(c *Config) { c.Model.Timeout = 0 }, "timeout"},
		{"zero concurrency", func(c *Config) { c.Model.MaxConcurrent = 0 }, "max_concurrent"},
		{"traversal prompt file", func(c *Config) { c.Prompt.SystemPromptFile = "../secret.txt" }, "system_prompt_file"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Model.APIKey = "sk-very-secret"

	red := cfg.Redacted()
	assert.Equal(t, "[exists]", red.Model.APIKey)
	assert.Equal(t, "sk-very-secret", cfg.Model.APIKey, "original must be untouched")

	cfg.Model.APIKey = ""
	assert.Equal(t, "[missing]", cfg.Redacted().Model.APIKey)
}
