// Package config provides centralized configuration management for the application.
// It loads configuration from an optional TOML file and environment variables
// with sensible defaults, and validates all settings on startup to fail fast
// on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables; a TOML file
// named by CONFIG_FILE may provide the same settings underneath them.
type Config struct {
	Server   ServerConfig    `toml:"server"`
	Upload   UploadConfig    `toml:"upload"`
	Merge    MergeConfig     `toml:"merge"`
	Rate     RateLimitConfig `toml:"rate"`
	Security SecurityConfig  `toml:"security"`
	Logging  LoggingConfig   `toml:"logging"`
	Database DatabaseConfig  `toml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `toml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `toml:"port" env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 60s)
	ReadTimeout time.Duration `toml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing response (default: 120s)
	WriteTimeout time.Duration `toml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"120s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `toml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `toml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// UploadConfig holds workbook upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum size of one uploaded workbook in bytes (default: 50MB)
	MaxFileSize int64 `toml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// PreviewRows is the number of rows shown in each file preview (default: 5)
	PreviewRows int `toml:"preview_rows" env:"UPLOAD_PREVIEW_ROWS" default:"5"`
}

// MergeConfig holds lookup merge settings.
type MergeConfig struct {
	// MaxConcurrent is the maximum number of merges held in memory at once (default: 4)
	MaxConcurrent int `toml:"max_concurrent" env:"MERGE_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a merge slot (default: 30s)
	MaxWaitTime time.Duration `toml:"max_wait_time" env:"MERGE_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single merge (default: 2m)
	Timeout time.Duration `toml:"timeout" env:"MERGE_TIMEOUT" default:"2m"`

	// OutputFileName is the download name of the merged workbook (default: vlookup_result.xlsx)
	OutputFileName string `toml:"output_file_name" env:"MERGE_OUTPUT_FILE_NAME" default:"vlookup_result.xlsx"`

	// SheetName is the name of the single sheet in the merged workbook (default: Result)
	SheetName string `toml:"sheet_name" env:"MERGE_SHEET_NAME" default:"Result"`

	// HistoryLimit is the number of runs listed on the history page (default: 50)
	HistoryLimit int `toml:"history_limit" env:"MERGE_HISTORY_LIMIT" default:"50"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `toml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `toml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// MergeLimit is requests per minute for inspect and merge endpoints (default: 20)
	MergeLimit int `toml:"merge_limit" env:"RATE_LIMIT_MERGE" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `toml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `toml:"enable_csp" env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `toml:"require_api_key" env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `toml:"api_keys" env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `toml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `toml:"format" env:"LOG_FORMAT" default:"text"`

	// SeqURL is the ingestion URL of a Seq server; empty disables the Seq sink
	SeqURL string `toml:"seq_url" env:"LOG_SEQ_URL"`
}

// DatabaseConfig holds database connection settings for run history.
// History is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `toml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `toml:"max_conns" env:"DB_MAX_CONNS" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `toml:"min_conns" env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `toml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `toml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// RetentionDays is how long run history is kept (default: 90)
	RetentionDays int `toml:"retention_days" env:"HISTORY_RETENTION_DAYS" default:"90"`

	// PruneInterval is how often old runs are deleted (default: 24h)
	PruneInterval time.Duration `toml:"prune_interval" env:"HISTORY_PRUNE_INTERVAL" default:"24h"`
}

// HistoryEnabled reports whether a database is configured for run history.
func (c *DatabaseConfig) HistoryEnabled() bool {
	return c.URL != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
