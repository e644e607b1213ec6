package config

import (
	"net"
	"strconv"
	"time"
)

// Supported storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func (c *Config) GetBotToken() string {
	return c.v.GetString("bot_token")
}

func (c *Config) GetClientID() string {
	return c.v.GetString("client_id")
}

// GetAPIURL returns the base URL of the Obsidion REST API (server status, Mojang checks)
func (c *Config) GetAPIURL() string {
	return c.v.GetString("api_url")
}

func (c *Config) GetLogDir() string {
	return c.v.GetString("log_dir")
}

func (c *Config) GetMetricsAddr() string {
	return c.v.GetString("metrics_addr")
}

// Storage
// -----

func (c *Config) GetDatabaseDriver() string {
	return c.v.GetString("database.driver")
}

func (c *Config) GetDatabasePath() string {
	return c.v.GetString("database.path")
}

func (c *Config) GetDatabaseHost() string {
	return c.v.GetString("database.host")
}

func (c *Config) GetDatabasePort() int {
	return c.v.GetInt("database.port")
}

func (c *Config) GetDatabaseUsername() string {
	return c.v.GetString("database.username")
}

func (c *Config) GetDatabasePassword() string {
	return c.v.GetString("database.password")
}

func (c *Config) GetDatabaseName() string {
	return c.v.GetString("database.database")
}

// Cache
// -----

// GetRedisEnabled reports whether a real Redis server should be used. When false
// an in-process stand-in is started instead (local/offline development).
func (c *Config) GetRedisEnabled() bool {
	return c.v.GetBool("redis.enabled")
}

func (c *Config) GetRedisAddr() string {
	return net.JoinHostPort(c.v.GetString("redis.host"), strconv.Itoa(c.v.GetInt("redis.port")))
}

func (c *Config) GetRedisPassword() string {
	return c.v.GetString("redis.password")
}

// Telemetry
// -----

func (c *Config) GetTelemetryEnabled() bool {
	return c.v.GetBool("telemetry.enabled")
}

func (c *Config) GetTelemetryEndpoint() string {
	return c.v.GetString("telemetry.endpoint")
}

func (c *Config) GetTelemetrySampleRate() float64 {
	return c.v.GetFloat64("telemetry.sample_rate")
}

// Upstream fetches
// -----

func (c *Config) GetFetchTimeout() time.Duration {
	return c.v.GetDuration("fetch.timeout")
}

func (c *Config) GetFetchMaxRetries() int {
	n := c.v.GetInt("fetch.max_retries")
	if n < 0 {
		return 0
	}
	return n
}

// GetCommandCooldown returns the per-user cooldown between two invocations of the same command
func (c *Config) GetCommandCooldown() time.Duration {
	return c.v.GetDuration("cooldown")
}

// Channels & bot lists
// -----

func (c *Config) GetNewGuildChannelID() string {
	return c.v.GetString("channels.new_guild")
}

func (c *Config) GetBotListInterval() time.Duration {
	d := c.v.GetDuration("botlist.interval")
	if d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// GetBotListToken returns the API token for a bot listing site, e.g. "dbl" or "discordlabs"
func (c *Config) GetBotListToken(site string) string {
	return c.v.GetString("botlist." + site + "_token")
}

// GetString returns the string value for a given config key
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}
