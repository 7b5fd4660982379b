package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up from the working directory upwards.
const ConfigFileName = "memberdesk.yaml"

const (
	DefaultAPIBaseURL = "http://localhost:8000"
	DefaultAPITimeout = 30 * time.Second
	DefaultSettleWait = 3 * time.Second
	DefaultWebAddress = "127.0.0.1:8080"
)

// Storage drivers
const (
	DriverSQLite  = "sqlite"
	DriverKeyring = "keyring"
	DriverFile    = "file"
	DriverMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Remote membership API
	API APIConfig

	// Web dashboard
	Web WebConfig

	// Durable client-side storage (token + persisted session)
	Storage StorageConfig

	// Session lifecycle
	Session SessionConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds the upstream REST API settings
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// WebConfig holds HTTP listener settings for the dashboard
type WebConfig struct {
	Address       string
	AllowOrigins  []string
	SecureCookies bool // mark the browser session cookie Secure; enable behind HTTPS
}

// StorageConfig selects the durable key-value backend
type StorageConfig struct {
	Driver      string // sqlite, keyring, file, memory; empty = binary default
	DatabaseURL string
	FilePath    string
	Key         string // passphrase for the sealed file backend, never read from YAML
}

// SessionConfig holds session lifecycle settings
type SessionConfig struct {
	RevalidateSchedule string // cron expression, empty = no periodic revalidation
	GuardSettleWait    time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// fileConfig mirrors memberdesk.yaml
type fileConfig struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Web struct {
		Address       string   `yaml:"address"`
		AllowOrigins  []string `yaml:"allow_origins"`
		SecureCookies *bool    `yaml:"secure_cookies"`
	} `yaml:"web"`
	Storage struct {
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
		File        string `yaml:"file"`
	} `yaml:"storage"`
	Session struct {
		RevalidateSchedule string `yaml:"revalidate_schedule"`
		GuardSettleWait    string `yaml:"guard_settle_wait"`
	} `yaml:"session"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultAPITimeout,
		},
		Web: WebConfig{
			Address: DefaultWebAddress,
		},
		Storage: StorageConfig{
			DatabaseURL: "memberdesk.sqlite",
			FilePath:    defaultStorageFile(),
		},
		Session: SessionConfig{
			GuardSettleWait: DefaultSettleWait,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from memberdesk.yaml (if any) and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	path := os.Getenv("MEMBERDESK_CONFIG")
	if path == "" {
		if found, err := FindConfigFile(); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for memberdesk.yaml in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find memberdesk.yaml or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, currentDir)
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&c.API.BaseURL, fc.API.BaseURL)
	if err := setDuration(&c.API.Timeout, fc.API.Timeout, "api.timeout"); err != nil {
		return err
	}
	setString(&c.Web.Address, fc.Web.Address)
	if len(fc.Web.AllowOrigins) > 0 {
		c.Web.AllowOrigins = fc.Web.AllowOrigins
	}
	if fc.Web.SecureCookies != nil {
		c.Web.SecureCookies = *fc.Web.SecureCookies
	}
	setString(&c.Storage.Driver, fc.Storage.Driver)
	setString(&c.Storage.DatabaseURL, fc.Storage.DatabaseURL)
	setString(&c.Storage.FilePath, fc.Storage.File)
	setString(&c.Session.RevalidateSchedule, fc.Session.RevalidateSchedule)
	if err := setDuration(&c.Session.GuardSettleWait, fc.Session.GuardSettleWait, "session.guard_settle_wait"); err != nil {
		return err
	}
	setString(&c.Logging.Level, fc.Logging.Level)
	setString(&c.Logging.Format, fc.Logging.Format)

	return nil
}

func (c *Config) mergeEnv() error {
	setString(&c.API.BaseURL, os.Getenv("API_BASE_URL"))
	if err := setDuration(&c.API.Timeout, os.Getenv("API_TIMEOUT"), "API_TIMEOUT"); err != nil {
		return err
	}
	setString(&c.Web.Address, os.Getenv("WEB_ADDRESS"))
	if origins := os.Getenv("WEB_ALLOW_ORIGINS"); origins != "" {
		c.Web.AllowOrigins = splitList(origins)
	}
	if v := strings.TrimSpace(os.Getenv("WEB_SECURE_COOKIES")); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid WEB_SECURE_COOKIES: %w", err)
		}
		c.Web.SecureCookies = secure
	}
	setString(&c.Storage.Driver, os.Getenv("STORAGE_DRIVER"))
	setString(&c.Storage.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&c.Storage.FilePath, os.Getenv("STORAGE_FILE"))
	setString(&c.Storage.Key, os.Getenv("MEMBERDESK_STORAGE_KEY"))
	setString(&c.Session.RevalidateSchedule, os.Getenv("SESSION_REVALIDATE_SCHEDULE"))
	if err := setDuration(&c.Session.GuardSettleWait, os.Getenv("GUARD_SETTLE_WAIT"), "GUARD_SETTLE_WAIT"); err != nil {
		return err
	}
	setString(&c.Logging.Level, os.Getenv("LOG_LEVEL"))
	setString(&c.Logging.Format, os.Getenv("LOG_FORMAT"))

	switch c.Storage.Driver {
	case "", DriverSQLite, DriverKeyring, DriverFile, DriverMemory:
	default:
		return fmt.Errorf("invalid storage driver '%s', must be one of: sqlite, keyring, file, memory", c.Storage.Driver)
	}

	return nil
}

// StorageDriver returns the configured driver or fallback when unset
func (c *Config) StorageDriver(fallback string) string {
	if c.Storage.Driver == "" {
		return fallback
	}
	return c.Storage.Driver
}

func defaultStorageFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "memberdesk-session.json"
	}
	return filepath.Join(homeDir, ".config", "memberdesk", "session.json")
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, value, name string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive", name)
	}
	*dst = d
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
