package config

import (
	"os"
	"slices"
)

// Environment variables holding secrets.
const (
	EnvFREDAPIKey    = "FAIRVALUE_DATA_FRED_API_KEY"
	EnvRedisPassword = "FAIRVALUE_CACHE_REDIS_PASSWORD"
)

// SecretSource is where a configured secret was read from.
type SecretSource string

const (
	SecretSourceEnv    SecretSource = "env"
	SecretSourceConfig SecretSource = "config"
	SecretSourceNone   SecretSource = "none"
)

// SecretStatus reports one secret without revealing it. InUse is false when
// the current configuration never reads the secret (FRED not in the
// risk-free chain, memory cache backend).
type SecretStatus struct {
	Name   string       `json:"name"`
	EnvVar string       `json:"env_var"`
	Source SecretSource `json:"source"`
	IsSet  bool         `json:"is_set"`
	InUse  bool         `json:"in_use"`
	Masked string       `json:"masked,omitempty"` // e.g., "abc...xyz"
}

// Missing reports a secret the configuration needs but does not have.
func (s SecretStatus) Missing() bool { return s.InUse && !s.IsSet }

type secret struct {
	name   string
	envVar string
	value  func(*Config) string
	inUse  func(*Config) bool
}

var secrets = []secret{
	{
		name:   "FRED API Key",
		envVar: EnvFREDAPIKey,
		value:  func(c *Config) string { return c.Data.FREDAPIKey },
		inUse:  func(c *Config) bool { return slices.Contains(c.Data.RiskFreeSources, "fred") },
	},
	{
		name:   "Redis Password",
		envVar: EnvRedisPassword,
		value:  func(c *Config) string { return c.Cache.RedisPassword },
		inUse:  func(c *Config) bool { return c.Cache.Backend == "redis" },
	},
}

// CheckSecrets returns the status of every secret FairValue can be given.
func CheckSecrets(cfg *Config) []SecretStatus {
	out := make([]SecretStatus, 0, len(secrets))
	for _, s := range secrets {
		out = append(out, s.status(cfg))
	}
	return out
}

func (s secret) status(cfg *Config) SecretStatus {
	v := s.value(cfg)
	st := SecretStatus{
		Name:   s.name,
		EnvVar: s.envVar,
		Source: SecretSourceNone,
		IsSet:  v != "",
		InUse:  s.inUse(cfg),
	}
	if v == "" {
		return st
	}
	st.Source = SecretSourceConfig
	if os.Getenv(s.envVar) == v {
		st.Source = SecretSourceEnv
	}
	st.Masked = maskSecret(v)
	return st
}

// maskSecret keeps the first and last 3 characters of secrets longer than 8.
func maskSecret(v string) string {
	if len(v) <= 8 {
		return "***"
	}
	return v[:3] + "..." + v[len(v)-3:]
}
