package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	// Blank out any env vars that would interfere
	for _, e := range []string{EnvFREDAPIKey, EnvRedisPassword, "FAIRVALUE_API_PORT", "FAIRVALUE_CACHE_BACKEND"} {
		t.Setenv(e, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Valuation defaults
	if cfg.Valuation.Horizon != 7 {
		t.Errorf("Valuation.Horizon: got %d, want 7", cfg.Valuation.Horizon)
	}
	set, err := cfg.Valuation.ScenarioSet()
	if err != nil {
		t.Fatalf("ScenarioSet() error: %v", err)
	}
	names := set.Names()
	if len(names) != 3 || names[0] != "conservative" || names[1] != "base" || names[2] != "optimistic" {
		t.Errorf("scenario order: got %v", names)
	}
	base, ok := set.Get("base")
	if !ok {
		t.Fatal("base scenario missing")
	}
	if base.AnnualRevenueGrowthPct != 22 || base.FCFMarginPct != 20 || base.ExitMultiple != 18 {
		t.Errorf("base scenario: got %+v", base)
	}

	dcf := cfg.Valuation.DCF
	if dcf.FCFGrowthRatePct != 15 {
		t.Errorf("DCF.FCFGrowthRatePct: got %f, want 15", dcf.FCFGrowthRatePct)
	}
	if dcf.DiscountRatePct != 0 {
		t.Errorf("DCF.DiscountRatePct: got %f, want 0 (CAPM)", dcf.DiscountRatePct)
	}
	if dcf.TerminalGrowthRatePct != 3 {
		t.Errorf("DCF.TerminalGrowthRatePct: got %f, want 3", dcf.TerminalGrowthRatePct)
	}
	if dcf.EquityRiskPremiumPct != 6 {
		t.Errorf("DCF.EquityRiskPremiumPct: got %f, want 6", dcf.EquityRiskPremiumPct)
	}
	if dcf.Years != 5 {
		t.Errorf("DCF.Years: got %d, want 5", dcf.Years)
	}

	// Data defaults
	if cfg.Data.YahooBaseURL != "https://query1.finance.yahoo.com" {
		t.Errorf("Data.YahooBaseURL: got %q", cfg.Data.YahooBaseURL)
	}
	if cfg.Data.FREDSeries != "DGS10" {
		t.Errorf("Data.FREDSeries: got %q, want DGS10", cfg.Data.FREDSeries)
	}
	if len(cfg.Data.RiskFreeSources) != 3 || cfg.Data.RiskFreeSources[0] != "yahoo" {
		t.Errorf("Data.RiskFreeSources: got %v", cfg.Data.RiskFreeSources)
	}
	if cfg.Data.RequestTimeoutSec != 30 {
		t.Errorf("Data.RequestTimeoutSec: got %d, want 30", cfg.Data.RequestTimeoutSec)
	}

	// Cache defaults
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend: got %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 3600 {
		t.Errorf("Cache.TTL: got %d, want 3600", cfg.Cache.TTL)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}
	if cfg.API.Addr() != "0.0.0.0:8080" {
		t.Errorf("API.Addr(): got %q", cfg.API.Addr())
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FAIRVALUE_API_PORT", "9191")
	t.Setenv("FAIRVALUE_VALUATION_HORIZON", "10")
	t.Setenv("FAIRVALUE_DATA_RISK_FREE_SOURCES", "fred,yahoo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port: got %d, want 9191", cfg.API.Port)
	}
	if cfg.Valuation.Horizon != 10 {
		t.Errorf("Valuation.Horizon: got %d, want 10", cfg.Valuation.Horizon)
	}
	if len(cfg.Data.RiskFreeSources) != 2 || cfg.Data.RiskFreeSources[0] != "fred" {
		t.Errorf("Data.RiskFreeSources: got %v", cfg.Data.RiskFreeSources)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
valuation:
  horizon: 5
  scenarios:
    - name: bear
      growth: 5
      margin: 15
      multiple: 10
    - name: bull
      growth: 40
      margin: 25
      multiple: 30
  dcf:
    growth_rate: 12
    discount_rate: 9.5
    terminal_growth: 2.5
    equity_risk_premium: 5
data:
  fred_api_key: "fred_key_from_file_1234"
  risk_free_sources: ["treasury"]
cache:
  backend: redis
  redis_addr: "localhost:6379"
  ttl: 120
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	t.Setenv(EnvFREDAPIKey, "")
	t.Setenv(EnvRedisPassword, "")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Valuation.Horizon != 5 {
		t.Errorf("Valuation.Horizon: got %d, want 5", cfg.Valuation.Horizon)
	}
	set, err := cfg.Valuation.ScenarioSet()
	if err != nil {
		t.Fatalf("ScenarioSet() error: %v", err)
	}
	if names := set.Names(); len(names) != 2 || names[0] != "bear" || names[1] != "bull" {
		t.Errorf("scenarios: got %v", names)
	}
	if bull, _ := set.Get("bull"); bull.ExitMultiple != 30 {
		t.Errorf("bull.ExitMultiple: got %f, want 30", bull.ExitMultiple)
	}
	if cfg.Valuation.DCF.DiscountRatePct != 9.5 {
		t.Errorf("DCF.DiscountRatePct: got %f, want 9.5", cfg.Valuation.DCF.DiscountRatePct)
	}
	if cfg.Valuation.DCF.TerminalGrowthRatePct != 2.5 {
		t.Errorf("DCF.TerminalGrowthRatePct: got %f, want 2.5", cfg.Valuation.DCF.TerminalGrowthRatePct)
	}
	if cfg.Data.FREDAPIKey != "fred_key_from_file_1234" {
		t.Errorf("Data.FREDAPIKey: got %q", cfg.Data.FREDAPIKey)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.TTL != 120 {
		t.Errorf("Cache: got %+v", cfg.Cache)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"duplicate scenario", "valuation:\n  scenarios:\n    - name: a\n    - name: a\n"},
		{"negative horizon", "valuation:\n  horizon: -2\n"},
		{"horizon too long", "valuation:\n  horizon: 101\n"},
		{"dcf years too long", "valuation:\n  dcf:\n    years: 51\n"},
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"redis without addr", "cache:\n  backend: redis\n"},
		{"unknown risk-free source", "data:\n  risk_free_sources: [bloomberg]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write temp config: %v", err)
			}
			if _, err := LoadFromFile(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// ── .env ──

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FAIRVALUE_TEST_DOTENV=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("FAIRVALUE_TEST_DOTENV", "")
	os.Unsetenv("FAIRVALUE_TEST_DOTENV")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv() error: %v", err)
	}
	if got := os.Getenv("FAIRVALUE_TEST_DOTENV"); got != "from-dotenv" {
		t.Errorf("FAIRVALUE_TEST_DOTENV: got %q", got)
	}
}

func TestLoadDotEnvMissingIsFine(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should not error, got %v", err)
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	cfg := &Config{}

	t.Setenv(EnvFREDAPIKey, "fred-env-key-123456")
	t.Setenv(EnvRedisPassword, "redis-secret")

	overrideFromEnv(cfg)

	if cfg.Data.FREDAPIKey != "fred-env-key-123456" {
		t.Errorf("FREDAPIKey: got %q", cfg.Data.FREDAPIKey)
	}
	if cfg.Cache.RedisPassword != "redis-secret" {
		t.Errorf("RedisPassword: got %q", cfg.Cache.RedisPassword)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	t.Setenv(EnvFREDAPIKey, "")

	cfg := &Config{
		Data: DataConfig{FREDAPIKey: "from-config"},
	}
	overrideFromEnv(cfg)

	// Should retain the original value when env is not set
	if cfg.Data.FREDAPIKey != "from-config" {
		t.Errorf("FREDAPIKey should stay as 'from-config' when env is unset, got %q", cfg.Data.FREDAPIKey)
	}
}

// ── maskSecret ──

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"ABCDEFGHIJKLMNOP", "ABC...NOP"},
	}
	for _, tc := range tests {
		got := maskSecret(tc.input)
		if got != tc.want {
			t.Errorf("maskSecret(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckSecrets ──

func TestCheckSecretsAllEmpty(t *testing.T) {
	t.Setenv(EnvFREDAPIKey, "")
	t.Setenv(EnvRedisPassword, "")

	statuses := CheckSecrets(&Config{})

	if len(statuses) != 2 {
		t.Fatalf("CheckSecrets: got %d statuses, want 2", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet || s.InUse || s.Missing() {
			t.Errorf("Secret %q: got %+v, want unset and unused", s.Name, s)
		}
		if s.Source != SecretSourceNone {
			t.Errorf("Secret %q source: got %q, want %q", s.Name, s.Source, SecretSourceNone)
		}
	}
}

func TestCheckSecretsSourceDetection(t *testing.T) {
	t.Setenv(EnvFREDAPIKey, "")
	t.Setenv(EnvRedisPassword, "")

	cfg := &Config{}
	cfg.Data.FREDAPIKey = "config-value-long-enough"
	fred := CheckSecrets(cfg)[0]
	if fred.Source != SecretSourceConfig || !fred.IsSet {
		t.Errorf("config value: got %+v", fred)
	}
	if fred.Masked != "con...ugh" {
		t.Errorf("Masked: got %q", fred.Masked)
	}
	if fred.EnvVar != EnvFREDAPIKey {
		t.Errorf("EnvVar: got %q", fred.EnvVar)
	}

	t.Setenv(EnvFREDAPIKey, "env-value-long-enough")
	cfg.Data.FREDAPIKey = "env-value-long-enough"
	if got := CheckSecrets(cfg)[0].Source; got != SecretSourceEnv {
		t.Errorf("env value: got source %q, want %q", got, SecretSourceEnv)
	}
}

func TestCheckSecretsInUse(t *testing.T) {
	t.Setenv(EnvFREDAPIKey, "")
	t.Setenv(EnvRedisPassword, "")

	cfg := &Config{}
	cfg.Data.RiskFreeSources = []string{"yahoo", "fred"}
	cfg.Cache.Backend = "redis"
	cfg.Cache.RedisPassword = "redis-password-123"

	statuses := CheckSecrets(cfg)
	fred, redis := statuses[0], statuses[1]
	if !fred.InUse || !fred.Missing() {
		t.Errorf("FRED key with fred in chain: got %+v, want in use and missing", fred)
	}
	if !redis.InUse || redis.Missing() {
		t.Errorf("Redis password with redis backend: got %+v, want in use and set", redis)
	}

	cfg.Data.RiskFreeSources = []string{"yahoo"}
	if CheckSecrets(cfg)[0].InUse {
		t.Error("FRED key should not be in use without fred in the chain")
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
