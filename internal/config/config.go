package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/spf13/viper"
)

type Config struct {
	v      *viper.Viper
	Logger *log.Logger
}

// NewConfig loads the configuration from various sources using viper
func NewConfig() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Try to read config file (don't error if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		// Config file can't be read, continue with env vars and defaults
		l := log.New(os.Stderr)
		l.Warnf("error reading config file: %v\nContinuing with envs...", err)
	}

	// Bind environment variables
	err := bindEnvs(v)
	if err != nil {
		// Without env bindings there is no usable config at all.
		return nil, fmt.Errorf("error binding environment variables: %w", err)
	}

	newLogFile, err := newLogFile(v.GetString("log_dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := pruneOldLogFiles(v.GetString("log_dir")); err != nil {
		return nil, fmt.Errorf("failed to prune old log files: %w", err)
	}

	// Log both to a file and to stderr
	w := io.MultiWriter(os.Stderr, newLogFile)

	newCfg := &Config{
		v: v,
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Prefix:          "obsidion",
		}),
	}

	// Validate required fields
	if err := validateConfig(newCfg); err != nil {
		return nil, err
	}

	return newCfg, nil
}

// newLogFile generates a new log file
func newLogFile(dir string) (*os.File, error) {
	if dir == "" {
		return nil, fmt.Errorf("log directory is not set")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.Create(filepath.Join(dir, fmt.Sprintf("obsidion_%s.log", time.Now().Format("20060102_150405"))))
	if err != nil {
		return nil, err
	}
	return file, nil
}

// PruneOldLogFiles removes stale log files from the configured log directory.
func (c *Config) PruneOldLogFiles() error {
	return pruneOldLogFiles(c.v.GetString("log_dir"))
}

// pruneOldLogFiles removes log files older than 7 days
func pruneOldLogFiles(dir string) error {
	logFiles, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	for _, file := range logFiles {
		if file.IsDir() {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > 7*24*time.Hour {
			if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
				return fmt.Errorf("failed to remove old log file %s: %w", file.Name(), err)
			}
		}
	}

	return nil
}

// NewMockConfig creates a mock configuration for testing
func NewMockConfig(kv map[string]interface{}) *Config {
	v := viper.New()
	setDefaults(v)
	for k, val := range kv {
		v.Set(k, val)
	}
	return &Config{
		v:      v,
		Logger: log.New(os.Stderr),
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_dir", "./logs")
	v.SetDefault("api_url", "https://api.obsidion-dev.com/api/v1")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./obsidion.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "obsidion")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_rate", 1.0)

	v.SetDefault("botlist.interval", 30*time.Minute)
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("cooldown", 5*time.Second)
}

// bindEnvs binds environment variables to viper keys
func bindEnvs(v *viper.Viper) error {
	bindings := []struct {
		key string
		env string
	}{
		{"bot_token", "OBSIDION_BOT_TOKEN"},
		{"client_id", "OBSIDION_CLIENT_ID"},
		{"api_url", "OBSIDION_API_URL"},
		{"log_dir", "OBSIDION_LOG_DIR"},
		{"metrics_addr", "OBSIDION_METRICS_ADDR"},

		{"database.driver", "OBSIDION_DATABASE_DRIVER"},
		{"database.path", "OBSIDION_DATABASE_PATH"},
		{"database.host", "OBSIDION_DATABASE_HOST"},
		{"database.port", "OBSIDION_DATABASE_PORT"},
		{"database.username", "OBSIDION_DATABASE_USERNAME"},
		{"database.password", "OBSIDION_DATABASE_PASSWORD"},
		{"database.database", "OBSIDION_DATABASE_NAME"},

		{"redis.enabled", "OBSIDION_REDIS_ENABLED"},
		{"redis.host", "OBSIDION_REDIS_HOST"},
		{"redis.port", "OBSIDION_REDIS_PORT"},
		{"redis.password", "OBSIDION_REDIS_PASSWORD"},

		{"telemetry.enabled", "OBSIDION_TELEMETRY_ENABLED"},
		{"telemetry.endpoint", "OBSIDION_TELEMETRY_ENDPOINT"},

		{"channels.new_guild", "OBSIDION_NEW_GUILD_CHANNEL"},

		{"botlist.dbl_token", "OBSIDION_DBL_TOKEN"},
		{"botlist.bots4discord_token", "OBSIDION_BOTS4DISCORD_TOKEN"},
		{"botlist.discordboats_token", "OBSIDION_DISCORDBOATS_TOKEN"},
		{"botlist.discordbotlist_token", "OBSIDION_DISCORDBOTLIST_TOKEN"},
		{"botlist.discordlabs_token", "OBSIDION_DISCORDLABS_TOKEN"},
	}

	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return fmt.Errorf("error binding %s environment variable: %w", binding.key, err)
		}
	}
	return nil
}

// validateConfig validates that all required configuration fields are present
func validateConfig(cfg *Config) error {
	if cfg.v.GetString("bot_token") == "" {
		return fmt.Errorf("bot_token is required (set OBSIDION_BOT_TOKEN environment variable)")
	}

	switch cfg.GetDatabaseDriver() {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.GetDatabaseDriver())
	}

	if cfg.GetClientID() == "" {
		cfg.Logger.Warn("client_id is not set, bot list stats will not be posted (set OBSIDION_CLIENT_ID)")
	}

	if !cfg.GetRedisEnabled() {
		cfg.Logger.Warn("redis is disabled, using an in-process cache stand-in")
	}

	return nil
}
