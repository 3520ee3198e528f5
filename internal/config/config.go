package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/stencil-dev/stencil/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"

	// DefaultTimeout bounds every network operation. The config key
	// "timeout" overrides it.
	DefaultTimeout = 60 * time.Second
)

// Dir returns the path to the Stencil config directory (~/.stencil/).
// The STENCIL_HOME environment variable overrides the default.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.stencil/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Proxy returns the HTTPS proxy URL for archive downloads, or empty if
// none is configured. Reads the "proxy" key (env: STENCIL_PROXY).
func Proxy() string {
	return viper.GetString("proxy")
}

// Timeout returns the network timeout for downloads and ref lookups.
// Reads the "timeout" key (env: STENCIL_TIMEOUT), e.g. "90s".
func Timeout() time.Duration {
	if d := viper.GetDuration("timeout"); d > 0 {
		return d
	}
	return DefaultTimeout
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
