package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port           string
	TrustedProxies []string

	// Database
	SQLiteDBPath string

	// Snapshots
	BackupDir        string
	BackupKeep       int
	SnapshotInterval time.Duration
	SnapshotOnWrite  bool

	// Budget
	DefaultCredit decimal.Decimal

	// Open Food Facts
	OFFBaseURL      string
	OFFTimeout      time.Duration
	OFFUserID       string
	OFFPassword     string
	LookupCacheSize int
	LookupCacheTTL  time.Duration
	LookupMissTTL   time.Duration

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker process
	WorkerMetricsAddr string

	// Google Sheets mirror (optional)
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/compras.db"),

		BackupDir:        getEnv("BACKUP_DIR", "./data/backups"),
		BackupKeep:       getEnvInt("BACKUP_KEEP", 30),
		SnapshotInterval: getEnvDuration("SNAPSHOT_INTERVAL", 24*time.Hour),
		SnapshotOnWrite:  getEnvBool("SNAPSHOT_ON_WRITE", false),

		DefaultCredit: getEnvDecimal("DEFAULT_CREDIT", decimal.NewFromInt(200)),

		OFFBaseURL:      strings.TrimRight(getEnv("OFF_BASE_URL", "https://world.openfoodfacts.org"), "/"),
		OFFTimeout:      getEnvDuration("OFF_TIMEOUT", 5*time.Second),
		OFFUserID:       getEnv("OFF_USER_ID", ""),
		OFFPassword:     getEnv("OFF_PASSWORD", ""),
		LookupCacheSize: getEnvInt("LOOKUP_CACHE_SIZE", 500),
		LookupCacheTTL:  getEnvDuration("LOOKUP_CACHE_TTL", 6*time.Hour),
		LookupMissTTL:   getEnvDuration("LOOKUP_MISS_TTL", 10*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "compras"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		WorkerMetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9091"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate checks every setting and reports all problems at once
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if isInMemoryDB(c.SQLiteDBPath) {
		errors = append(errors, fmt.Sprintf("invalid SQLite database path '%s': in-memory databases are not supported", c.SQLiteDBPath))
	}

	if strings.TrimSpace(c.BackupDir) == "" {
		errors = append(errors, "backup directory cannot be empty")
	}
	if c.BackupKeep < 1 {
		errors = append(errors, fmt.Sprintf("invalid backup keep %d: must be at least 1", c.BackupKeep))
	}
	if c.SnapshotInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid snapshot interval %v: must be at least 1 minute", c.SnapshotInterval))
	}

	if c.DefaultCredit.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid default credit %s: must not be negative", c.DefaultCredit))
	}

	if parsedURL, err := url.Parse(c.OFFBaseURL); err != nil || parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid Open Food Facts base URL '%s'", c.OFFBaseURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid Open Food Facts URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.OFFTimeout <= 0 || c.OFFTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid Open Food Facts timeout %v: must be between 0 and 1 minute", c.OFFTimeout))
	}
	if (c.OFFUserID == "") != (c.OFFPassword == "") {
		errors = append(errors, "OFF_USER_ID and OFF_PASSWORD must be set together")
	}
	if c.LookupCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid lookup cache size %d: must be at least 1", c.LookupCacheSize))
	}
	if c.LookupMissTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid lookup miss TTL %v: must not be negative", c.LookupMissTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json", "pretty":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text, json or pretty", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// isInMemoryDB matches ":memory:" and "file:...?mode=memory" paths. Migrations
// run on their own connection and would never reach such a database.
func isInMemoryDB(path string) bool {
	path = strings.ToLower(strings.TrimSpace(path))
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvDecimal accepts both "150.5" and "150,5"
func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(value), ",", ".")); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
