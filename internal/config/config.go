package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendHTTP   = "http"
	BackendMemory = "memory"

	HomeSourceClient = "client"
	HomeSourceServer = "server"
)

type Config struct {
	// HTTP Server
	Port string

	// Remote API
	APIURL      string
	APITimeout  time.Duration
	APIToken    string
	DataBackend string

	// Memory backend
	MemorySeedDir string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Outbox
	OutboxBatchSize     int
	OutboxFlushInterval time.Duration

	HomeSummarySource string

	// Logging
	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("API_URL", "")
	v.SetDefault("API_TIMEOUT", 15*time.Second)
	v.SetDefault("API_TOKEN", "")
	v.SetDefault("DATA_BACKEND", BackendMemory)
	v.SetDefault("MEMORY_SEED_DIR", "data")
	v.SetDefault("SQLITE_DB_PATH", "./data/ganhos.db")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "ganhos")
	v.SetDefault("AMQP_QUEUE", "ledger_events")
	v.SetDefault("GOOGLE_SPREADSHEET_ID", "")
	v.SetDefault("GOOGLE_SHEET_NAME", "Ganhos")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	v.SetDefault("OUTBOX_BATCH_SIZE", 10)
	v.SetDefault("OUTBOX_FLUSH_INTERVAL", 30*time.Second)
	v.SetDefault("HOME_SUMMARY_SOURCE", HomeSourceClient)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads configuration from the environment and an optional YAML file.
// With an empty configFile, ./ganhos.yaml is used when present.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ganhos")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		Port:        v.GetString("PORT"),
		APIURL:      strings.TrimRight(v.GetString("API_URL"), "/"),
		APITimeout:  v.GetDuration("API_TIMEOUT"),
		APIToken:    v.GetString("API_TOKEN"),
		DataBackend: strings.ToLower(v.GetString("DATA_BACKEND")),

		MemorySeedDir: v.GetString("MEMORY_SEED_DIR"),
		SQLiteDBPath:  v.GetString("SQLITE_DB_PATH"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		GoogleSpreadsheetID:      v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:          v.GetString("GOOGLE_SHEET_NAME"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),

		OutboxBatchSize:     v.GetInt("OUTBOX_BATCH_SIZE"),
		OutboxFlushInterval: v.GetDuration("OUTBOX_FLUSH_INTERVAL"),

		HomeSummarySource: strings.ToLower(v.GetString("HOME_SUMMARY_SOURCE")),

		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
	}, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendHTTP, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendHTTP {
		if c.APIURL == "" {
			errs = append(errs, "API URL is required when using http backend")
		} else if u, err := url.Parse(c.APIURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.HomeSummarySource != HomeSourceClient && c.HomeSummarySource != HomeSourceServer {
		errs = append(errs, fmt.Sprintf("invalid home summary source '%s': must be 'client' or 'server'", c.HomeSummarySource))
	}

	if c.OutboxBatchSize < 1 || c.OutboxBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid outbox batch size %d: must be between 1 and 1000", c.OutboxBatchSize))
	}
	if c.OutboxFlushInterval < time.Second || c.OutboxFlushInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid outbox flush interval %v: must be between 1 second and 24 hours", c.OutboxFlushInterval))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	return joinProblems(errs)
}

// ValidateWorker checks the settings only the export worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP URL is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "Google Spreadsheet ID is required for the export worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return joinProblems(errs)
}

func joinProblems(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
