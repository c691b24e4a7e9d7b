// ABOUTME: Configuration loading and parsing for simplevista
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/2389/simplevista/internal/gateway"
	"github.com/2389/simplevista/internal/router"
)

// Defaults applied to fields left empty by the config file.
const (
	DefaultHTTPAddr    = "localhost:8080"
	DefaultBasePath    = router.DefaultBasePath
	DefaultProjectKey  = gateway.DefaultProjectKey
	DefaultQueryURL    = gateway.DefaultQueryURL
	DefaultChatURL     = gateway.DefaultChatURL
	DefaultMetricsPath = "/metrics"
)

// Config represents the complete simplevista configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Backend   BackendConfig   `yaml:"backend" toml:"backend"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr" toml:"http_addr"`
	BasePath       string   `yaml:"base_path" toml:"base_path"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // Serve HTTPS with tailnet certs
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// BackendConfig holds the webhook endpoints called by the gateway client
type BackendConfig struct {
	ProjectKey   string `yaml:"project_key" toml:"project_key"`
	QueryURL     string `yaml:"query_url" toml:"query_url"`
	ChatURL      string `yaml:"chat_url" toml:"chat_url"`
	StrictStatus bool   `yaml:"strict_status" toml:"strict_status"`

	Timeout time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns a configuration that works without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills empty fields with their defaults
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" && !c.Tailscale.Enabled {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = DefaultBasePath
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(DataDir(), "simplevista.db")
	}
	if c.Backend.ProjectKey == "" {
		c.Backend.ProjectKey = DefaultProjectKey
	}
	if c.Backend.QueryURL == "" {
		c.Backend.QueryURL = DefaultQueryURL
	}
	if c.Backend.ChatURL == "" {
		c.Backend.ChatURL = DefaultChatURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /: %q", c.Server.BasePath)
	}
	if strings.ContainsAny(c.Server.BasePath, patternChars) {
		return fmt.Errorf("server.base_path must not contain braces or whitespace: %q", c.Server.BasePath)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if err := validateWebhookURL("backend.query_url", c.Backend.QueryURL); err != nil {
		return err
	}
	if err := validateWebhookURL("backend.chat_url", c.Backend.ChatURL); err != nil {
		return err
	}

	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error: %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json: %q", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if err := validateMetricsPath(c.Metrics.Path, c.Server.BasePath); err != nil {
			return err
		}
	}

	return nil
}

// ServerAddr returns where the server can be reached: the tailnet hostname
// in Tailscale mode, otherwise server.http_addr.
func (c *Config) ServerAddr() string {
	if c.Tailscale.Enabled {
		return c.Tailscale.Hostname
	}
	return c.Server.HTTPAddr
}

// HealthURL returns the readiness endpoint at ServerAddr.
func (c *Config) HealthURL() string {
	scheme := "http"
	if c.Tailscale.Enabled && (c.Tailscale.HTTPS || c.Tailscale.Funnel) {
		scheme = "https"
	}
	return scheme + "://" + c.ServerAddr() + "/health/ready"
}

// patternChars cannot appear in paths registered as ServeMux patterns.
const patternChars = "{} \t"

// validateMetricsPath rejects metrics paths that would clash with the health
// endpoints or the console routes on the shared mux.
func validateMetricsPath(path, basePath string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("metrics.path must start with /: %q", path)
	}
	if strings.ContainsAny(path, patternChars) {
		return fmt.Errorf("metrics.path must not contain braces or whitespace: %q", path)
	}

	switch path {
	case "/", "/health", "/health/ready":
		return fmt.Errorf("metrics.path collides with a built-in route: %q", path)
	}

	base := router.JoinBase(basePath, "/")
	if base == "/" {
		if _, ok := router.Resolve(path); ok || path == "/static/" {
			return fmt.Errorf("metrics.path collides with a console route: %q", path)
		}
		return nil
	}
	if _, ok := router.StripBase(base, path); ok {
		return fmt.Errorf("metrics.path must be outside server.base_path %q: %q", base, path)
	}
	return nil
}

func validateWebhookURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL: %q", field, raw)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.TimeoutRaw != "" {
		cfg.Backend.Timeout, err = time.ParseDuration(cfg.Backend.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Backend.TimeoutRaw, err)
		}
	}

	return nil
}

// Path returns the path to the config file.
// Priority: SIMPLEVISTA_CONFIG env var > XDG_CONFIG_HOME/simplevista/config.yaml > ~/.config/simplevista/config.yaml
func Path() string {
	if envPath := os.Getenv("SIMPLEVISTA_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Dir returns the simplevista config directory.
func Dir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "." // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "simplevista")
}

// DataDir returns the simplevista data directory.
// Priority: XDG_DATA_HOME/simplevista > ~/.local/share/simplevista
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "simplevista")
}
