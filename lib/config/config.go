// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gleanwork/bitbucket-mcp/lib/secret"
)

// AuthMode controls inbound authentication on the MCP endpoints.
type AuthMode string

const (
	// AuthModeNone disables inbound authentication. Development only.
	AuthModeNone AuthMode = "none"
	// AuthModeGleanOnly requires a valid Bitbucket bearer token and
	// restricts request origins to the configured Glean instance.
	AuthModeGleanOnly AuthMode = "glean_only"
)

// Config is the complete configuration for the MCP server.
type Config struct {
	// Bitbucket configures the outbound Bitbucket Cloud API client.
	Bitbucket BitbucketConfig `yaml:"bitbucket"`

	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Auth configures inbound authentication.
	Auth AuthConfig `yaml:"auth"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// Limits configures response size budgets.
	Limits LimitsConfig `yaml:"limits"`
}

// BitbucketConfig holds OAuth credentials and API endpoints for
// Bitbucket Cloud.
type BitbucketConfig struct {
	// ClientID is the OAuth consumer key. Required.
	ClientID string `yaml:"client_id"`

	// ClientSecret is the OAuth consumer secret. Required. Loadable
	// from a file via BITBUCKET_CLIENT_SECRET_FILE.
	ClientSecret string `yaml:"client_secret"`

	// APIBase is the REST API root. Default:
	// https://api.bitbucket.org/2.0
	APIBase string `yaml:"api_base"`

	// AuthURL is the OAuth 2.0 endpoint root. Default:
	// https://bitbucket.org/site/oauth2
	AuthURL string `yaml:"auth_url"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address. Default 0.0.0.0 (all interfaces, the
	// container contract).
	Host string `yaml:"host"`

	// Port is the listen port. Default 8080.
	Port int `yaml:"port"`

	// Name is the MCP server name reported during initialize.
	// Default "bitbucket-pr-review".
	Name string `yaml:"name"`
}

// AuthConfig holds inbound authentication settings.
type AuthConfig struct {
	// Mode is "none" or "glean_only". Default "none".
	Mode AuthMode `yaml:"mode"`

	// GleanInstance is the Glean tenant name (e.g. "support-lab").
	// Required when Mode is "glean_only".
	GleanInstance string `yaml:"glean_instance"`

	// AllowedOrigins is a comma-separated CORS origin list. Empty
	// means all origins.
	AllowedOrigins string `yaml:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is DEBUG, INFO, WARNING, or ERROR. Default INFO.
	Level string `yaml:"level"`
}

// LimitsConfig holds response size budgets.
type LimitsConfig struct {
	// MaxDiffBytes truncates PR diffs beyond this size before they are
	// returned to the agent. Default 100000 (~25k tokens).
	MaxDiffBytes int `yaml:"max_diff_bytes"`
}

// Default returns the built-in defaults. Credentials have no default;
// they must come from the config file or environment.
func Default() *Config {
	return &Config{
		Bitbucket: BitbucketConfig{
			APIBase: "https://api.bitbucket.org/2.0",
			AuthURL: "https://bitbucket.org/site/oauth2",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Name: "bitbucket-pr-review",
		},
		Auth: AuthConfig{
			Mode: AuthModeNone,
		},
		Log: LogConfig{
			Level: "INFO",
		},
		Limits: LimitsConfig{
			MaxDiffBytes: 100_000,
		},
	}
}

// Load builds the effective configuration: defaults, then the optional
// YAML file named by BITBUCKET_MCP_CONFIG, then environment variable
// overrides. Environment wins so that a deployed container can be
// reconfigured at launch without a rebuild.
func Load() (*Config, error) {
	return load(os.Getenv("BITBUCKET_MCP_CONFIG"))
}

// LoadFile is Load with an explicit config file path (the --config
// flag). The file is required when named explicitly.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	return load(path)
}

func load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto the config. Only set
// variables override; empty values leave the current setting alone.
func (c *Config) applyEnv() error {
	setString(&c.Bitbucket.ClientID, "BITBUCKET_CLIENT_ID")
	setString(&c.Bitbucket.APIBase, "BITBUCKET_API_BASE")
	setString(&c.Bitbucket.AuthURL, "BITBUCKET_AUTH_URL")
	setString(&c.Server.Host, "MCP_SERVER_HOST")
	setString(&c.Server.Name, "MCP_SERVER_NAME")
	setString(&c.Auth.GleanInstance, "GLEAN_INSTANCE")
	setString(&c.Auth.AllowedOrigins, "ALLOWED_ORIGINS")
	setString(&c.Log.Level, "LOG_LEVEL")

	if value := os.Getenv("AUTH_MODE"); value != "" {
		c.Auth.Mode = AuthMode(value)
	}

	// The client secret supports the *_FILE indirection used by
	// orchestrator-managed secrets.
	clientSecret, err := secret.FromEnv("BITBUCKET_CLIENT_SECRET")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if clientSecret != "" {
		c.Bitbucket.ClientSecret = clientSecret
	}

	if err := setInt(&c.Server.Port, "MCP_SERVER_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Limits.MaxDiffBytes, "MAX_DIFF_BYTES"); err != nil {
		return err
	}

	return nil
}

func setString(target *string, name string) {
	if value := os.Getenv(name); value != "" {
		*target = value
	}
}

func setInt(target *int, name string) error {
	value := os.Getenv(name)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("config: %s=%q is not an integer", name, value)
	}
	*target = parsed
	return nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Bitbucket.ClientID == "" {
		errs = append(errs, fmt.Errorf("bitbucket.client_id is required (BITBUCKET_CLIENT_ID)"))
	}
	if c.Bitbucket.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("bitbucket.client_secret is required (BITBUCKET_CLIENT_SECRET)"))
	}
	if !strings.HasPrefix(c.Bitbucket.APIBase, "https://") {
		errs = append(errs, fmt.Errorf("bitbucket.api_base must use HTTPS (got %q)", c.Bitbucket.APIBase))
	}
	if !strings.HasPrefix(c.Bitbucket.AuthURL, "https://") {
		errs = append(errs, fmt.Errorf("bitbucket.auth_url must use HTTPS (got %q)", c.Bitbucket.AuthURL))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535 (got %d)", c.Server.Port))
	}
	if c.Server.Name == "" {
		errs = append(errs, fmt.Errorf("server.name is required"))
	}

	switch c.Auth.Mode {
	case AuthModeNone:
	case AuthModeGleanOnly:
		if c.Auth.GleanInstance == "" {
			errs = append(errs, fmt.Errorf("auth.glean_instance is required when auth.mode is glean_only (GLEAN_INSTANCE)"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be %q or %q (got %q)", AuthModeNone, AuthModeGleanOnly, c.Auth.Mode))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if c.Limits.MaxDiffBytes <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_diff_bytes must be positive (got %d)", c.Limits.MaxDiffBytes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ListenAddress returns the host:port the HTTP server binds.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// SlogLevel maps the configured log level name to a slog.Level.
// "WARNING" is accepted as an alias for slog's "WARN" since the deployment
// contract uses the longer spelling.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be DEBUG, INFO, WARNING, or ERROR (got %q)", c.Log.Level)
	}
}

// AllowedOriginList splits the comma-separated CORS origin list,
// dropping empty entries. Returns ["*"] when unset.
func (c *Config) AllowedOriginList() []string {
	var origins []string
	for _, origin := range strings.Split(c.Auth.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
