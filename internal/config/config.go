// Package config handles configuration loading for FairValue.
// It supports YAML config files with environment variable overrides and an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/fairvalue/internal/valuation"
)

// EnvPrefix prefixes every environment override, e.g. FAIRVALUE_API_PORT.
const EnvPrefix = "FAIRVALUE"

// Config represents the complete application configuration.
type Config struct {
	Valuation ValuationConfig `mapstructure:"valuation" yaml:"valuation"`
	Data      DataConfig      `mapstructure:"data"      yaml:"data"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// ValuationConfig holds the default model inputs used when a request or
// command leaves them out.
type ValuationConfig struct {
	Horizon   int                       `mapstructure:"horizon"   yaml:"horizon"` // years
	Scenarios []valuation.NamedScenario `mapstructure:"scenarios" yaml:"scenarios"`
	DCF       valuation.DCFAssumptions  `mapstructure:"dcf"       yaml:"dcf"`
}

// ScenarioSet returns the configured default scenarios as an ordered set.
func (v ValuationConfig) ScenarioSet() (*valuation.ScenarioSet, error) {
	return valuation.NewScenarioSet(v.Scenarios...)
}

// DataConfig holds market-data and risk-free-rate source settings.
type DataConfig struct {
	YahooBaseURL      string   `mapstructure:"yahoo_base_url"      yaml:"yahoo_base_url"`
	FREDBaseURL       string   `mapstructure:"fred_base_url"       yaml:"fred_base_url"`
	FREDAPIKey        string   `mapstructure:"fred_api_key"        yaml:"fred_api_key"`
	FREDSeries        string   `mapstructure:"fred_series"         yaml:"fred_series"`
	TreasuryBaseURL   string   `mapstructure:"treasury_base_url"   yaml:"treasury_base_url"`
	ScoringURL        string   `mapstructure:"scoring_url"         yaml:"scoring_url"`     // empty disables the score passthrough
	RiskFreeSources   []string `mapstructure:"risk_free_sources"   yaml:"risk_free_sources"` // tried in order: "yahoo", "fred", "treasury"
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
	RateLimitPerSec   int      `mapstructure:"rate_limit_per_sec"  yaml:"rate_limit_per_sec"`
}

// CacheConfig holds snapshot cache settings.
type CacheConfig struct {
	Backend       string `mapstructure:"backend"        yaml:"backend"` // "memory" or "redis"
	TTL           int    `mapstructure:"ttl"            yaml:"ttl"`     // seconds
	RedisAddr     string `mapstructure:"redis_addr"     yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       yaml:"redis_db"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns host:port for the HTTP listener.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.fairvalue/config.yaml (home directory)
//  3. /etc/fairvalue/config.yaml (system)
//
// A .env file in the working directory is loaded into the environment first.
// Environment variables override config file values.
// Format: FAIRVALUE_<SECTION>_<KEY>, e.g., FAIRVALUE_DATA_FRED_API_KEY
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".fairvalue"))
	v.AddConfigPath("/etc/fairvalue")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if c.Valuation.Horizon < 0 || c.Valuation.Horizon > valuation.MaxHorizon {
		return fmt.Errorf("valuation.horizon must be between 0 and %d, got %d", valuation.MaxHorizon, c.Valuation.Horizon)
	}
	if c.Valuation.DCF.Years < 0 || c.Valuation.DCF.Years > valuation.MaxExplicitYears {
		return fmt.Errorf("valuation.dcf.years must be between 0 and %d, got %d", valuation.MaxExplicitYears, c.Valuation.DCF.Years)
	}
	if _, err := c.Valuation.ScenarioSet(); err != nil {
		return fmt.Errorf("valuation.scenarios: %w", err)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required for the redis backend")
	}
	for _, s := range c.Data.RiskFreeSources {
		switch s {
		case "yahoo", "fred", "treasury":
		default:
			return fmt.Errorf("data.risk_free_sources: unknown source %q", s)
		}
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Valuation defaults
	v.SetDefault("valuation.horizon", 7)
	v.SetDefault("valuation.scenarios", []map[string]any{
		{"name": "conservative", "growth": 15, "margin": 20, "multiple": 14},
		{"name": "base", "growth": 22, "margin": 20, "multiple": 18},
		{"name": "optimistic", "growth": 30, "margin": 20, "multiple": 20},
	})
	v.SetDefault("valuation.dcf.growth_rate", 15.0)
	v.SetDefault("valuation.dcf.discount_rate", 0.0) // derive via CAPM
	v.SetDefault("valuation.dcf.terminal_growth", 3.0)
	v.SetDefault("valuation.dcf.equity_risk_premium", 6.0)
	v.SetDefault("valuation.dcf.years", valuation.DefaultExplicitYears)

	// Data source defaults
	v.SetDefault("data.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("data.fred_base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("data.fred_series", "DGS10")
	v.SetDefault("data.treasury_base_url", "https://home.treasury.gov/resource-center/data-chart-center/interest-rates")
	v.SetDefault("data.scoring_url", "")
	v.SetDefault("data.risk_free_sources", []string{"yahoo", "treasury", "fred"})
	v.SetDefault("data.request_timeout_sec", 30)
	v.SetDefault("data.rate_limit_per_sec", 5)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 3600) // 1 hour
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:5173"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvFREDAPIKey); key != "" {
		cfg.Data.FREDAPIKey = key
	}
	if pw := os.Getenv(EnvRedisPassword); pw != "" {
		cfg.Cache.RedisPassword = pw
	}
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
