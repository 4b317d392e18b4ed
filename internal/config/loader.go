package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, standard locations are searched for
// pkla.yaml/.yml; requiring an explicit YAML extension avoids matching the
// binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// Nothing found; ReadInConfig will return ConfigFileNotFoundError,
		// which FromViper handles gracefully.
		viper.SetConfigName("pkla")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: PKLA_STORE_PATHS, PKLA_CONFIG_DIR, ...
	viper.SetEnvPrefix("PKLA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindEnvKeys()
}

// findConfigFile searches standard locations for a pkla config file with an
// explicit YAML extension. Returns the first match, or empty string.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".pkla"),
		"/etc/pkla",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "pkla"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindEnvKeys binds the nested config keys so environment variables can
// override them.
func bindEnvKeys() {
	_ = viper.BindEnv("store_paths")
	_ = viper.BindEnv("config_dir")
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("cache.enabled")
	_ = viper.BindEnv("cache.size")
	_ = viper.BindEnv("cache.ttl")
}
