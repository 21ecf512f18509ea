// Package config loads Passage's configuration surface (spec.md §6) from
// YAML, following the teacher's LoadConfig/validate pattern
// (cmd/portal-tunnel/config.go). A fixed set of fields (see
// applyEnvOverrides) can be overridden by PASSAGE_-prefixed environment
// variables; every other key, including the adapter and localization
// sections, is read from the file only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "PASSAGE_"

// RateLimiter is the sliding-window admission-control surface.
type RateLimiter struct {
	Enabled  bool          `yaml:"enabled"`
	Duration time.Duration `yaml:"duration"`
	Size     int           `yaml:"size"`
}

// AdapterConfig names a variant and carries its variant-specific parameters
// as a raw map, since each adapter kind (status/discovery/strategy) defines
// its own parameter shape (spec.md §6 "<variant-params>").
type AdapterConfig struct {
	Adapter string         `yaml:"adapter"`
	Params  map[string]any `yaml:",inline"`
}

// Localization is the locale-resolver configuration surface (spec.md §4.8).
type Localization struct {
	DefaultLocale string                       `yaml:"default_locale"`
	Messages      map[string]map[string]string `yaml:"messages"`
}

// Config is the full Passage configuration surface (spec.md §6).
type Config struct {
	Address     string        `yaml:"address"`
	Timeout     time.Duration `yaml:"timeout"`
	MetricsAddr string        `yaml:"metrics_address"`

	ProxyProtocol struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"proxy_protocol"`

	RateLimiter RateLimiter `yaml:"rate_limiter"`

	Status          AdapterConfig `yaml:"status"`
	TargetDiscovery AdapterConfig `yaml:"target_discovery"`
	TargetStrategy  AdapterConfig `yaml:"target_strategy"`
	ResourcePack    AdapterConfig `yaml:"resourcepack"`

	AuthSecret       string `yaml:"auth_secret"`
	AuthSecretFile   string `yaml:"auth_secret_file"`
	AuthCookieExpiry int    `yaml:"auth_cookie_expiry_secs"`
	AuthIdentityURL  string `yaml:"auth_identity_url"`

	Localization Localization `yaml:"localization"`

	MinProtocolVersion int32 `yaml:"min_protocol_version"`
	MaxProtocolVersion int32 `yaml:"max_protocol_version"`
}

// Load reads the YAML file at path, applies the PASSAGE_-prefixed
// environment overrides (ADDRESS, TIMEOUT, METRICS_ADDRESS,
// PROXY_PROTOCOL_ENABLED, RATE_LIMITER_ENABLED, RATE_LIMITER_SIZE,
// AUTH_SECRET, AUTH_SECRET_FILE), and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("ADDRESS"); ok {
		cfg.Address = v
	}
	if v, ok := lookupEnv("TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v, ok := lookupEnv("METRICS_ADDRESS"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupEnv("PROXY_PROTOCOL_ENABLED"); ok {
		cfg.ProxyProtocol.Enabled = v == "true"
	}
	if v, ok := lookupEnv("RATE_LIMITER_ENABLED"); ok {
		cfg.RateLimiter.Enabled = v == "true"
	}
	if v, ok := lookupEnv("RATE_LIMITER_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimiter.Size = n
		}
	}
	if v, ok := lookupEnv("AUTH_SECRET"); ok {
		cfg.AuthSecret = v
	}
	if v, ok := lookupEnv("AUTH_SECRET_FILE"); ok {
		cfg.AuthSecretFile = v
	}
}

func lookupEnv(suffix string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + suffix)
	if !ok {
		return "", false
	}
	return v, true
}

func (cfg *Config) validate() error {
	var errs []string

	if strings.TrimSpace(cfg.Address) == "" {
		errs = append(errs, "address is required")
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if cfg.AuthSecret == "" && cfg.AuthSecretFile == "" {
		errs = append(errs, "one of auth_secret or auth_secret_file is required")
	}
	if cfg.Status.Adapter == "" {
		errs = append(errs, "status.adapter is required")
	}
	if cfg.TargetDiscovery.Adapter == "" {
		errs = append(errs, "target_discovery.adapter is required")
	}
	if cfg.TargetStrategy.Adapter == "" {
		errs = append(errs, "target_strategy.adapter is required")
	}
	if strings.TrimSpace(cfg.AuthIdentityURL) == "" {
		errs = append(errs, "auth_identity_url is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n - %s", strings.Join(errs, "\n - "))
	}
	return nil
}

// ResolveAuthSecret returns the configured HMAC secret, reading
// AuthSecretFile when AuthSecret is empty.
func (cfg *Config) ResolveAuthSecret() ([]byte, error) {
	if cfg.AuthSecret != "" {
		return []byte(cfg.AuthSecret), nil
	}
	data, err := os.ReadFile(cfg.AuthSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read auth secret file: %w", err)
	}
	return []byte(strings.TrimSpace(string(data))), nil
}
