// Package config loads scout workspace configuration from .scout/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the workspace directory holding config and the activity database.
const DirName = ".scout"

// Defaults.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultPollInterval      = 60 * time.Second
	DefaultRequestsPerSecond = 5.0
	DefaultRequestBurst      = 5
	defaultConfigFile        = "config.yaml"
	defaultDBFile            = "scout.db"
)

// Config holds all scout configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Outreach OutreachConfig `yaml:"outreach"`
	Gmail    GmailConfig    `yaml:"gmail"`

	// Dir is the workspace directory the config was loaded from. Not serialized.
	Dir string `yaml:"-"`
}

// BackendConfig describes how to reach the drafting backend.
type BackendConfig struct {
	BaseURL           string   `yaml:"base_url"`
	TokenFile         string   `yaml:"token_file,omitempty"`
	Token             string   `yaml:"-"`
	Timeout           Duration `yaml:"timeout,omitempty"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty"`
	Burst             int      `yaml:"burst,omitempty"`
}

// OutreachConfig configures outreach status polling.
type OutreachConfig struct {
	PollInterval Duration `yaml:"poll_interval,omitempty"`
}

// GmailConfig points at OAuth client credentials used for draft export.
type GmailConfig struct {
	Credentials string `yaml:"credentials,omitempty"`
}

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration time.Duration

// UnmarshalYAML parses values like "30s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns a config with every default applied and no backend URL.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a config file, applies environment overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	if err := cfg.resolveToken(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCOUT_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("SCOUT_API_TOKEN"); v != "" {
		c.Backend.Token = v
	}
}

func (c *Config) applyDefaults() {
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = Duration(DefaultTimeout)
	}
	if c.Backend.RequestsPerSecond == 0 {
		c.Backend.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Backend.Burst == 0 {
		c.Backend.Burst = DefaultRequestBurst
	}
	if c.Outreach.PollInterval == 0 {
		c.Outreach.PollInterval = Duration(DefaultPollInterval)
	}
}

// resolveToken reads the bearer token from token_file unless the
// environment already supplied one. Relative paths are taken from the
// workspace directory.
func (c *Config) resolveToken() error {
	if c.Backend.Token != "" || c.Backend.TokenFile == "" {
		return nil
	}
	path := c.resolvePath(c.Backend.TokenFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read token file %s: %w", path, err)
	}
	c.Backend.Token = strings.TrimSpace(string(data))
	return nil
}

// GmailCredentialsPath returns the absolute credentials.json path, or "".
func (c *Config) GmailCredentialsPath() string {
	if c.Gmail.Credentials == "" {
		return ""
	}
	return c.resolvePath(c.Gmail.Credentials)
}

func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Validate checks the config for values scout cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required (or set SCOUT_BACKEND_URL)"))
	}
	if c.Backend.Timeout.Std() <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("backend.requests_per_second must not be negative"))
	}
	if c.Outreach.PollInterval.Std() <= 0 {
		errs = append(errs, errors.New("outreach.poll_interval must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Path returns the config file path inside a workspace directory.
func Path(dir string) string {
	return filepath.Join(dir, defaultConfigFile)
}

// DBPath returns the activity database path inside a workspace directory.
func DBPath(dir string) string {
	return filepath.Join(dir, defaultDBFile)
}

// Discover finds the .scout workspace directory by walking up from cwd.
// Returns the directory path or empty string if not found.
func Discover() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(filepath.Join(candidate, defaultConfigFile)); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
