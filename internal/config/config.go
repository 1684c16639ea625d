package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the lorelink configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Annotate AnnotateConfig `yaml:"annotate"`
	Preview  PreviewConfig  `yaml:"preview"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, sqlite (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	SQLitePath       string   `yaml:"sqlite_path"`
}

// IsKV reports whether the driver is a Redis-protocol store.
func (d DatabaseConfig) IsKV() bool {
	return d.Driver == DriverValkey || d.Driver == DriverRedis
}

// AnnotateConfig holds scanner settings.
type AnnotateConfig struct {
	Engine       string `yaml:"engine"`        // regexp (default), automaton
	CacheTTLSec  int    `yaml:"cache_ttl_sec"` // 0 disables the annotation cache
	MaxTextBytes int    `yaml:"max_text_bytes"`
}

// PreviewConfig holds preview interaction and summarizer settings.
type PreviewConfig struct {
	FetchDebounceMs int              `yaml:"fetch_debounce_ms"`
	GracePeriodMs   int              `yaml:"grace_period_ms"`
	Summarizer      SummarizerConfig `yaml:"summarizer"`
}

// SummarizerConfig holds settings of the OpenAI-compatible description summarizer.
// An empty model disables it.
type SummarizerConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	MaxDescriptionChars int    `yaml:"max_description_chars"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"`
	TimeoutSec          int    `yaml:"timeout_sec"`

	Budget BudgetConfig `yaml:"budget"`
}

// BudgetConfig caps summarizer tokens per UTC day and month. Zero means unlimited.
type BudgetConfig struct {
	DailyTokens   int64  `yaml:"daily_tokens"`
	MonthlyTokens int64  `yaml:"monthly_tokens"`
	Action        string `yaml:"action"` // warn (default), reject
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokens > 0 || b.MonthlyTokens > 0
}

// CatalogConfig holds catalog write limits.
type CatalogConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Annotate.Engine == "" {
		c.Annotate.Engine = "regexp"
	}
	if c.Annotate.MaxTextBytes <= 0 {
		c.Annotate.MaxTextBytes = 262144
	}
	if c.Preview.FetchDebounceMs <= 0 {
		c.Preview.FetchDebounceMs = 150
	}
	if c.Preview.GracePeriodMs <= 0 {
		c.Preview.GracePeriodMs = 300
	}
	if c.Preview.Summarizer.MaxDescriptionChars <= 0 {
		c.Preview.Summarizer.MaxDescriptionChars = 600
	}
	if c.Preview.Summarizer.TimeoutSec <= 0 {
		c.Preview.Summarizer.TimeoutSec = 15
	}
	if c.Preview.Summarizer.Budget.Action == "" {
		c.Preview.Summarizer.Budget.Action = "warn"
	}
	if c.Catalog.MaxBatchSize <= 0 {
		c.Catalog.MaxBatchSize = 100
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "lorelink:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be valkey, redis or sqlite, got %q", c.Database.Driver)
	}
	switch c.Annotate.Engine {
	case "regexp", "automaton":
		// ok
	default:
		return fmt.Errorf("annotate.engine must be \"regexp\" or \"automaton\", got %q", c.Annotate.Engine)
	}
	if c.Annotate.CacheTTLSec < 0 {
		return fmt.Errorf("annotate.cache_ttl_sec must not be negative, got %d", c.Annotate.CacheTTLSec)
	}
	if s := c.Preview.Summarizer; s.Model != "" && s.APIKey == "" {
		return fmt.Errorf("preview.summarizer.api_key is required when a model is set")
	}
	if b := c.Preview.Summarizer.Budget; b.DailyTokens < 0 || b.MonthlyTokens < 0 {
		return fmt.Errorf("preview.summarizer.budget limits must not be negative")
	}
	switch c.Preview.Summarizer.Budget.Action {
	case "warn", "reject":
		// ok
	default:
		return fmt.Errorf("preview.summarizer.budget.action must be \"warn\" or \"reject\", got %q",
			c.Preview.Summarizer.Budget.Action)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
