// Package config provides configuration management for the component builder
// using Viper for loading from files, environment variables and command-line
// flags.
//
// Environment overrides use the COMPONENT_BUILDER_ prefix with dots replaced by
// underscores (model.base_url -> COMPONENT_BUILDER_MODEL_BASE_URL). The model
// API key is loaded here but never logged; Redacted returns a copy safe to
// print.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmckenna-gumgum/component-builder/internal/validation"
	"github.com/spf13/viper"
)

// SchemaPolicyStrict is the only component schema contract accepted.
const SchemaPolicyStrict = "strict"

const (
	DefaultPort          = 3001
	DefaultHost          = "localhost"
	DefaultOrigin        = "http://localhost:3000"
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultModel         = "gpt-4"
	DefaultTemperature   = 0.7
	DefaultTimeout       = 60 * time.Second
	DefaultMaxConcurrent = 4
)

type Config struct {
	Server ServerConfig `yaml:"server" json:"server" mapstructure:"server"`
	Model  ModelConfig  `yaml:"model" json:"model" mapstructure:"model"`
	Prompt PromptConfig `yaml:"prompt" json:"prompt" mapstructure:"prompt"`
	Store  StoreConfig  `yaml:"store" json:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" json:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" json:"port" mapstructure:"port"`
	Host            string        `yaml:"host" json:"host" mapstructure:"host"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins" mapstructure:"allowed_origins"`
	Environment     string        `yaml:"environment" json:"environment" mapstructure:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type ModelConfig struct {
	BaseURL       string        `yaml:"base_url" json:"base_url" mapstructure:"base_url"`
	APIKey        string        `yaml:"api_key" json:"api_key" mapstructure:"api_key"`
	Model         string        `yaml:"model" json:"model" mapstructure:"model"`
	Temperature   float64       `yaml:"temperature" json:"temperature" mapstructure:"temperature"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	MaxConcurrent int64         `yaml:"max_concurrent" json:"max_concurrent" mapstructure:"max_concurrent"`
}

type PromptConfig struct {
	SystemPromptFile string `yaml:"system_prompt_file" json:"system_prompt_file" mapstructure:"system_prompt_file"`
	SchemaPolicy     string `yaml:"schema_policy" json:"schema_policy" mapstructure:"schema_policy"`
}

type StoreConfig struct {
	Path         string `yaml:"path" json:"path" mapstructure:"path"`
	SeedDefaults bool   `yaml:"seed_defaults" json:"seed_defaults" mapstructure:"seed_defaults"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
	Dir    string `yaml:"dir" json:"dir" mapstructure:"dir"`
}

// Load reads the global viper state into a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads v into a validated Config.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	// Explicit booleans and floats cannot be told apart from their zero value
	// after Unmarshal.
	if v.IsSet("store.seed_defaults") {
		config.Store.SeedDefaults = v.GetBool("store.seed_defaults")
	} else {
		config.Store.SeedDefaults = true
	}
	if !v.IsSet("model.temperature") {
		config.Model.Temperature = DefaultTemperature
	}

	// Handle origins set via a comma-separated env var
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins[0])
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a Config with every default applied, without consulting
// viper.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	config.Store.SeedDefaults = true
	config.Model.Temperature = DefaultTemperature

	return config
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{DefaultOrigin}
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Model.BaseURL == "" {
		config.Model.BaseURL = DefaultBaseURL
	}
	config.Model.BaseURL = strings.TrimRight(config.Model.BaseURL, "/")
	if config.Model.Model == "" {
		config.Model.Model = DefaultModel
	}
	if config.Model.Timeout == 0 {
		config.Model.Timeout = DefaultTimeout
	}
	if config.Model.MaxConcurrent == 0 {
		config.Model.MaxConcurrent = DefaultMaxConcurrent
	}

	if config.Prompt.SchemaPolicy == "" {
		config.Prompt.SchemaPolicy = SchemaPolicyStrict
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// Redacted returns a copy of the config with the API key replaced by a
// presence marker.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	if c.Model.APIKey != "" {
		out.Model.APIKey = "[exists]"
	} else {
		out.Model.APIKey = "[missing]"
	}

	return &out
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Validate re-runs validation, for configs built without Load.
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateModelConfig(&config.Model); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := validatePromptConfig(&config.Prompt); err != nil {
		return fmt.Errorf("prompt config: %w", err)
	}

	if config.Store.Path != "" {
		if err := validation.ValidatePath(config.Store.Path); err != nil {
			return fmt.Errorf("store config: %w", err)
		}
	}

	switch config.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log config: unknown format %q", config.Log.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	for _, origin := range config.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if err := validation.ValidateURL(origin); err != nil {
			return fmt.Errorf("allowed origin %q: %w", origin, err)
		}
	}

	switch config.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("unknown environment %q", config.Environment)
	}

	return nil
}

func validateModelConfig(config *ModelConfig) error {
	if err := validation.ValidateURL(config.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}

	if strings.TrimSpace(config.Model) == "" {
		return fmt.Errorf("model identifier cannot be empty")
	}

	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature %.2f is not in valid range 0-2", config.Temperature)
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}

	if config.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", config.MaxConcurrent)
	}

	return nil
}

func validatePromptConfig(config *PromptConfig) error {
	if config.SchemaPolicy != SchemaPolicyStrict {
		return fmt.Errorf("unsupported schema_policy %q (only %q)", config.SchemaPolicy, SchemaPolicyStrict)
	}

	if config.SystemPromptFile != "" {
		if err := validation.ValidatePath(config.SystemPromptFile); err != nil {
			return fmt.Errorf("system_prompt_file: %w", err)
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}
