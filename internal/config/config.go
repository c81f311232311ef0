// Package config loads application configuration from environment variables
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable Load reads.
const EnvPrefix = "TRACKERSYNC"

// ConfigFileEnv names the variable holding an optional config file path.
const ConfigFileEnv = "TRACKERSYNC_CONFIG"

// Config holds the application configuration.
type Config struct {
	ListenAddr   string
	DBPath       string
	PollInterval time.Duration

	// SecretKey, when set, seals credentials with a static key instead of
	// the OS keyring. 64 hex characters or base64 of 32 bytes.
	SecretKey                 string
	AllowPlaintextCredentials bool

	LinearAPIURL string

	LogFormat     string // "text" or "json".
	LogLevel      slog.Level
	LogFile       string // Empty logs to stderr.
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// defaults for every key Load understands.
var defaults = map[string]any{
	"listen_addr":                 "127.0.0.1:8080",
	"db_path":                     "trackersync.db",
	"poll_interval":               "5m",
	"secret_key":                  "",
	"allow_plaintext_credentials": false,
	"linear_api_url":              "https://api.linear.app/graphql",
	"log_format":                  "text",
	"log_level":                   "info",
	"log_file":                    "",
	"log_max_size_mb":             50,
	"log_max_backups":             3,
	"log_max_age_days":            28,
}

// Load reads configuration from TRACKERSYNC_* environment variables, layered
// over the file named by TRACKERSYNC_CONFIG (YAML, TOML or JSON by extension)
// and the defaults. Invalid values fail fast.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path, ok := os.LookupEnv(ConfigFileEnv); ok && path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	pollInterval, err := time.ParseDuration(v.GetString("poll_interval"))
	if err != nil {
		return nil, fmt.Errorf("TRACKERSYNC_POLL_INTERVAL has invalid duration %q: %w", v.GetString("poll_interval"), err)
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("TRACKERSYNC_POLL_INTERVAL must be positive, got %s", pollInterval)
	}

	allowPlaintext, err := parseBool(v, "allow_plaintext_credentials")
	if err != nil {
		return nil, err
	}

	logFormat := strings.ToLower(v.GetString("log_format"))
	if logFormat != "text" && logFormat != "json" {
		return nil, fmt.Errorf("TRACKERSYNC_LOG_FORMAT must be text or json, got %q", logFormat)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("TRACKERSYNC_LOG_LEVEL is invalid: %w", err)
	}

	cfg := &Config{
		ListenAddr:                v.GetString("listen_addr"),
		DBPath:                    v.GetString("db_path"),
		PollInterval:              pollInterval,
		SecretKey:                 v.GetString("secret_key"),
		AllowPlaintextCredentials: allowPlaintext,
		LinearAPIURL:              v.GetString("linear_api_url"),
		LogFormat:                 logFormat,
		LogLevel:                  level,
		LogFile:                   v.GetString("log_file"),
		LogMaxSizeMB:              v.GetInt("log_max_size_mb"),
		LogMaxBackups:             v.GetInt("log_max_backups"),
		LogMaxAgeDays:             v.GetInt("log_max_age_days"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("TRACKERSYNC_LISTEN_ADDR must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("TRACKERSYNC_DB_PATH must not be empty"))
	}
	if c.LinearAPIURL == "" {
		errs = append(errs, errors.New("TRACKERSYNC_LINEAR_API_URL must not be empty"))
	}
	if c.LogMaxSizeMB <= 0 {
		errs = append(errs, errors.New("TRACKERSYNC_LOG_MAX_SIZE_MB must be positive"))
	}
	return errors.Join(errs...)
}

// parseBool reads a boolean key strictly; viper's GetBool maps garbage to false.
func parseBool(v *viper.Viper, key string) (bool, error) {
	switch raw := strings.ToLower(strings.TrimSpace(v.GetString(key))); raw {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("TRACKERSYNC_%s has invalid boolean %q", strings.ToUpper(key), raw)
	}
}
