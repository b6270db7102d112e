package config

import "time"

// RoleCacheConfig configures the Redis cache in front of role lookups. Every
// data request needs the caller's role, so answers are kept for TTL and
// dropped when the role changes.
type RoleCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadRoleCacheConfig reads ROLE_CACHE_* variables.
func LoadRoleCacheConfig() RoleCacheConfig {
	cfg := RoleCacheConfig{
		Enabled: envBool("ROLE_CACHE_ENABLED", true),
		TTL:     envDur("ROLE_CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("ROLE_CACHE_PREFIX", "miboda:role"),
	}
	if cfg.TTL <= 0 {
		cfg.Enabled = false
	}
	return cfg
}
