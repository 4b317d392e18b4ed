// Package config provides configuration loading for pkla.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default locations, matching pklocalauthority(8).
const (
	// DefaultConfigDir holds the localauthority key-file configuration
	// fragments (AdminIdentities and friends).
	DefaultConfigDir = "/etc/polkit-1/localauthority.conf.d"
	// DefaultStorePaths is the ;-separated default list of authorization
	// store search roots, in configuration order.
	DefaultStorePaths = "/var/lib/polkit-1/localauthority;/etc/polkit-1/localauthority"
)

// Config is the tool's own configuration, loaded from pkla.yaml and
// PKLA_* environment variables. The polkit key-file surfaces
// (localauthority.conf.d, .pkla files) are separate and read by Source and
// the store adapter.
type Config struct {
	// StorePaths are the authorization store search roots, in configuration
	// order (lower index = earlier-configured root).
	StorePaths []string `yaml:"store_paths" mapstructure:"store_paths" validate:"min=1,dive,required"`

	// ConfigDir is the directory of localauthority *.conf fragments.
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir" validate:"required"`

	// LogLevel sets the slog level for the CLI handler.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// Cache configures the optional decision cache.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig configures the optional TTL'd LRU decision cache. Disabled by
// default: the core contract works with caching absent, and group
// memberships can change outside the registry's change events.
type CacheConfig struct {
	// Enabled turns the decision cache on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Size is the maximum number of cached decisions.
	Size int `yaml:"size" mapstructure:"size" validate:"omitempty,gte=0"`
	// TTL bounds how long a cached decision may be served.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"omitempty,gte=0"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		StorePaths: SplitPaths(DefaultStorePaths),
		ConfigDir:  DefaultConfigDir,
		LogLevel:   "warn",
		Cache: CacheConfig{
			Enabled: false,
			Size:    1024,
			TTL:     30 * time.Second,
		},
	}
}

// SplitPaths splits a ;-separated path list, dropping empty entries (a
// trailing separator is allowed).
func SplitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration using struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// DumpYAML renders the effective configuration, for `pkla config`.
func (c *Config) DumpYAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}

// FromViper assembles a Config from the initialized Viper state, applying
// defaults for anything unset.
func FromViper() (*Config, error) {
	cfg := Default()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No pkla.yaml anywhere; environment variables and defaults apply.
	}

	// store_paths may be a ;-separated string (environment, original polkit
	// convention) or a YAML list (a dumped config fed back in).
	switch v := viper.Get("store_paths").(type) {
	case string:
		if v != "" {
			cfg.StorePaths = SplitPaths(v)
		}
	case []any:
		var paths []string
		for _, p := range v {
			if s, ok := p.(string); ok && s != "" {
				paths = append(paths, s)
			}
		}
		if len(paths) > 0 {
			cfg.StorePaths = paths
		}
	}
	if v := viper.GetString("config_dir"); v != "" {
		cfg.ConfigDir = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetInt("cache.size"); v > 0 {
		cfg.Cache.Size = v
	}
	if v := viper.GetDuration("cache.ttl"); v > 0 {
		cfg.Cache.TTL = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
