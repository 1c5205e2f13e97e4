package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the configuration reads.
// Account credentials are not configuration; see pkg/auth.
const EnvPrefix = "IGPUBLISHER_"

// Config holds all configuration options for the publisher
type Config struct {
	// Graph API endpoint and client settings
	Graph GraphConfig `yaml:"graph" json:"graph" envPrefix:"GRAPH_"`

	// Container polling
	Publish PublishConfig `yaml:"publish" json:"publish" envPrefix:"PUBLISH_"`

	// Opt-in retry of transient Graph API failures
	Retry RetryConfig `yaml:"retry" json:"retry" envPrefix:"RETRY_"`

	// HTTP server
	Server ServerConfig `yaml:"server" json:"server" envPrefix:"SERVER_"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" envPrefix:"LOG_"`
}

// GraphConfig holds Graph API settings
type GraphConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	APIVersion        string        `yaml:"api_version" json:"api_version" env:"API_VERSION"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout" env:"REQUEST_TIMEOUT"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// Endpoint returns the versioned base all Graph API paths hang off
func (g GraphConfig) Endpoint() string {
	base := strings.TrimRight(g.BaseURL, "/")
	if g.APIVersion == "" {
		return base
	}
	return base + "/" + strings.Trim(g.APIVersion, "/")
}

// PublishConfig holds the wait-for-ready loop settings
type PublishConfig struct {
	PollTimeout  time.Duration `yaml:"poll_timeout" json:"poll_timeout" env:"POLL_TIMEOUT"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" env:"POLL_INTERVAL"`
}

// RetryConfig holds retry configuration for individual Graph API calls
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay" env:"BASE_DELAY"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay" env:"MAX_DELAY"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr" env:"ADDR"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	File   string `yaml:"file" json:"file" env:"FILE"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			BaseURL:           "https://graph.facebook.com",
			APIVersion:        "v20.0",
			RequestTimeout:    30 * time.Second,
			RequestsPerMinute: 0, // 0 means no limit
		},
		Publish: PublishConfig{
			PollTimeout:  60 * time.Second,
			PollInterval: 2 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:     false,
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			File:   "",
			Format: "text",
		},
	}
}

// LoadFromEnv overlays IGPUBLISHER_* environment variables. Unset variables
// leave the current values alone.
func (c *Config) LoadFromEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"igpublisher.yaml",
		"igpublisher.yml",
		".igpublisher.yaml",
		".igpublisher.yml",
		filepath.Join(home, ".config", "igpublisher", "config.yaml"),
		filepath.Join(home, ".igpublisher.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Graph.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("graph base URL must be an absolute URL"))
	}
	if c.Graph.RequestTimeout <= 0 {
		errs = append(errs, errors.New("graph request timeout must be positive"))
	}
	if c.Graph.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Publish.PollTimeout <= 0 {
		errs = append(errs, errors.New("poll timeout must be positive"))
	}
	if c.Publish.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
			errs = append(errs, errors.New("retry max attempts must be between 1 and 10"))
		}
		if c.Retry.BaseDelay <= 0 {
			errs = append(errs, errors.New("retry base delay must be positive"))
		}
		if c.Retry.MaxDelay < c.Retry.BaseDelay {
			errs = append(errs, errors.New("retry max delay must not be below base delay"))
		}
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("allowed origin %q must be * or an http(s) origin", origin))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if timeout, ok := flags["poll-timeout"].(time.Duration); ok && timeout > 0 {
		c.Publish.PollTimeout = timeout
	}
	if interval, ok := flags["poll-interval"].(time.Duration); ok && interval > 0 {
		c.Publish.PollInterval = interval
	}
	if retry, ok := flags["retry"].(bool); ok {
		c.Retry.Enabled = retry
	}
	if base, ok := flags["graph-url"].(string); ok && base != "" {
		c.Graph.BaseURL = base
	}
}

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win; missing files are ignored.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igpublisher.env"))
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	LoadDotEnv()

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
