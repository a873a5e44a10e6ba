package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tally-dev/tally/internal/catalog"
)

const (
	// FileName is the workspace configuration file.
	FileName = "tally.yaml"
	// EnvFileName is the optional dotenv file read from the workspace.
	EnvFileName = ".env"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	DataFile     string          `yaml:"data_file"`
	BaseCurrency string          `yaml:"base_currency"`
	Storage      StorageConfig   `yaml:"storage"`
	Rates        RatesConfig     `yaml:"rates"`
	Catalog      catalog.Catalog `yaml:"catalog"`
	Log          LogConfig       `yaml:"log"`
	Server       ServerConfig    `yaml:"server"`
	Git          GitConfig       `yaml:"git"`
}

// StorageConfig selects where expenses are kept.
type StorageConfig struct {
	Backend    string `yaml:"backend"` // "json" or "sqlite"
	SQLitePath string `yaml:"sqlite_path"`
}

// RatesConfig controls exchange-rate lookups. Durations use time.ParseDuration
// syntax; Refresh is a cron spec and may be empty to disable refreshing.
type RatesConfig struct {
	Endpoint string            `yaml:"endpoint"`
	Timeout  string            `yaml:"timeout"`
	TTL      string            `yaml:"ttl"`
	Refresh  string            `yaml:"refresh"`
	Fallback map[string]string `yaml:"fallback"` // units per 1 USD
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// ServerConfig controls `tally serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Default returns a Config with sensible defaults for a new workspace.
func Default() *Config {
	return &Config{
		DataFile:     "expenses.json",
		BaseCurrency: "USD",
		Storage: StorageConfig{
			Backend:    BackendJSON,
			SQLitePath: "tally.db",
		},
		Rates: RatesConfig{
			Endpoint: "https://api.exchangerate-api.com/v4/latest",
			Timeout:  "5s",
			TTL:      "1h",
			Refresh:  "@every 1h",
			Fallback: map[string]string{
				"USD": "1",
				"GBP": "0.79",
				"EUR": "0.92",
				"EGP": "48.50",
			},
		},
		Catalog: catalog.Default(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "tally",
			AuthorEmail: "tally@localhost",
		},
	}
}

// Load reads a tally.yaml file from disk. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadWorkspace builds the configuration for the workspace at root:
// defaults, then tally.yaml if present, then the workspace .env file, then
// the process environment. The result is validated.
func LoadWorkspace(root string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	dotenv, err := godotenv.Read(filepath.Join(root, EnvFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", EnvFileName, err)
	}
	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TALLY_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("TALLY_DATA_FILE", &c.DataFile)
	set("TALLY_BASE_CURRENCY", &c.BaseCurrency)
	set("TALLY_STORAGE_BACKEND", &c.Storage.Backend)
	set("TALLY_SQLITE_PATH", &c.Storage.SQLitePath)
	set("TALLY_RATES_ENDPOINT", &c.Rates.Endpoint)
	set("TALLY_RATES_TIMEOUT", &c.Rates.Timeout)
	set("TALLY_RATES_TTL", &c.Rates.TTL)
	set("TALLY_RATES_REFRESH", &c.Rates.Refresh)
	if strings.EqualFold(c.Rates.Refresh, "off") {
		c.Rates.Refresh = ""
	}
	set("TALLY_LOG_LEVEL", &c.Log.Level)
	set("TALLY_LOG_FORMAT", &c.Log.Format)
	set("TALLY_SERVER_ADDR", &c.Server.Addr)

	if v, ok := lookup("TALLY_GIT_AUTO_COMMIT"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			c.Git.AutoCommit = true
		case "0", "false", "no", "off":
			c.Git.AutoCommit = false
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.DataFile) == "" {
		problems = append(problems, "data_file is empty")
	}
	if code := strings.TrimSpace(c.BaseCurrency); len(code) != 3 {
		problems = append(problems, fmt.Sprintf("base_currency %q is not a 3-letter code", c.BaseCurrency))
	}
	switch c.Storage.Backend {
	case BackendJSON:
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			problems = append(problems, "storage.sqlite_path is empty")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q must be %q or %q", c.Storage.Backend, BackendJSON, BackendSQLite))
	}

	if _, err := c.Rates.TimeoutDuration(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.Rates.TTLDuration(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Rates.Refresh != "" {
		if _, err := cron.ParseStandard(c.Rates.Refresh); err != nil {
			problems = append(problems, fmt.Sprintf("rates.refresh %q: %v", c.Rates.Refresh, err))
		}
	}
	if _, err := c.Rates.FallbackRates(); err != nil {
		problems = append(problems, err.Error())
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level: %v", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("log.format %q must be \"text\" or \"json\"", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Base returns the normalized base currency code.
func (c *Config) Base() string {
	return strings.ToUpper(strings.TrimSpace(c.BaseCurrency))
}

// DataPath returns the JSON data file, resolved against root.
func (c *Config) DataPath(root string) string {
	return resolve(root, c.DataFile)
}

// SQLitePath returns the SQLite database file, resolved against root.
func (c *Config) SQLitePath(root string) string {
	return resolve(root, c.Storage.SQLitePath)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// TimeoutDuration parses Timeout.
func (r RatesConfig) TimeoutDuration() (time.Duration, error) {
	return positiveDuration("rates.timeout", r.Timeout)
}

// TTLDuration parses TTL.
func (r RatesConfig) TTLDuration() (time.Duration, error) {
	return positiveDuration("rates.ttl", r.TTL)
}

func positiveDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s %q must be positive", name, s)
	}
	return d, nil
}

// FallbackRates parses the fallback table. Codes are upper-cased and every
// rate must be a positive decimal.
func (r RatesConfig) FallbackRates() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(r.Fallback))
	for code, s := range r.Fallback {
		v, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("rates.fallback.%s %q: %w", code, s, err)
		}
		if !v.IsPositive() {
			return nil, fmt.Errorf("rates.fallback.%s %q must be positive", code, s)
		}
		out[strings.ToUpper(strings.TrimSpace(code))] = v
	}
	return out, nil
}
