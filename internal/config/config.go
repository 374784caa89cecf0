package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phillip-england/empportal/internal/directory"
	"github.com/phillip-england/empportal/internal/source"
)

// Config holds all portal configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Source  SourceConfig  `yaml:"source"`
	Synth   SynthConfig   `yaml:"synth"`
	Display DisplayConfig `yaml:"display"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	SessionTTL      string `yaml:"session_ttl"`
	SecureCookies   bool   `yaml:"secure_cookies"`
}

// AuthConfig is the single demo account the portal accepts.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SourceConfig struct {
	Kind     string `yaml:"kind"` // http, spreadsheet, snapshot
	Endpoint string `yaml:"endpoint"`
	Path     string `yaml:"path"`
	Timeout  string `yaml:"timeout"`
	CacheTTL string `yaml:"cache_ttl"`
}

type SynthConfig struct {
	Mode string `yaml:"mode"` // stable, random
	Salt string `yaml:"salt"`
}

type DisplayConfig struct {
	NumberLocale string `yaml:"number_locale"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
			SessionTTL:      "12h",
		},
		Auth: AuthConfig{
			Username: "testuser",
			Password: "Test123",
		},
		Source: SourceConfig{
			Kind:     source.KindHTTP,
			Endpoint: source.DefaultEndpoint,
			Timeout:  "8s",
			CacheTTL: "5m",
		},
		Synth: SynthConfig{
			Mode: directory.SynthStable,
			Salt: "empportal",
		},
		Display: DisplayConfig{
			NumberLocale: "en-IN",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults and then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, "PORTAL_ADDR")
	set(&c.Auth.Username, "PORTAL_USERNAME")
	set(&c.Auth.Password, "PORTAL_PASSWORD")
	set(&c.Source.Kind, "SOURCE_KIND")
	set(&c.Source.Endpoint, "USERS_ENDPOINT")
	set(&c.Source.Path, "SOURCE_PATH")
	set(&c.Source.CacheTTL, "CACHE_TTL")
	set(&c.Synth.Mode, "SYNTH_MODE")
	set(&c.Synth.Salt, "SYNTH_SALT")
	set(&c.Display.NumberLocale, "NUMBER_LOCALE")
	set(&c.Logging.Level, "LOG_LEVEL")

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("PORTAL_ADDR") == "" {
		c.Server.Addr = ":" + port
	}
}

// SourceLocation is the endpoint for http sources and the file path
// otherwise.
func (c *Config) SourceLocation() string {
	if strings.EqualFold(c.Source.Kind, source.KindHTTP) || c.Source.Kind == "" {
		return c.Source.Endpoint
	}
	return c.Source.Path
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Server.SessionTTL, 12*time.Hour)
}

func (c *Config) GetSourceTimeout() time.Duration {
	return parseDuration(c.Source.Timeout, 8*time.Second)
}

// GetCacheTTL returns how long a fetched batch is served before reloading.
// Zero disables expiry.
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration(c.Source.CacheTTL, 5*time.Minute)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

var (
	ValidSourceKinds = []string{source.KindHTTP, source.KindSpreadsheet, source.KindSnapshot}
	ValidSynthModes  = []string{directory.SynthStable, directory.SynthRandom}
	ValidLogLevels   = []string{"debug", "info", "warn", "error"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server address is required")
	}
	if strings.TrimSpace(c.Auth.Username) == "" || c.Auth.Password == "" {
		return fmt.Errorf("auth username and password are required (set PORTAL_USERNAME and PORTAL_PASSWORD)")
	}
	kind := strings.ToLower(c.Source.Kind)
	if !slices.Contains(ValidSourceKinds, kind) {
		return fmt.Errorf("invalid source kind: %s (valid: %v)", c.Source.Kind, ValidSourceKinds)
	}
	if kind != source.KindHTTP && strings.TrimSpace(c.Source.Path) == "" {
		return fmt.Errorf("source kind %s requires source.path", kind)
	}
	if !slices.Contains(ValidSynthModes, strings.ToLower(c.Synth.Mode)) {
		return fmt.Errorf("invalid synth mode: %s (valid: %v)", c.Synth.Mode, ValidSynthModes)
	}
	if !slices.Contains(ValidLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	for name, raw := range map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"server.session_ttl":      c.Server.SessionTTL,
		"source.timeout":          c.Source.Timeout,
		"source.cache_ttl":        c.Source.CacheTTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
