package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

// ClientConfig configures a tracker client: the remote API, the local cache
// slot used for offline reads, and the connectivity probe.
type ClientConfig struct {
	APIURL        string
	Timeout       time.Duration
	CacheBackend  string
	CachePath     string
	RedisURL      string
	Namespace     string
	ProbeInterval time.Duration
}

// DefaultClientConfig returns the client defaults. APIURL has no default.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:       10 * time.Second,
		CacheBackend:  CacheBackendSQLite,
		CachePath:     "jobctl.db",
		Namespace:     "jobs_cache",
		ProbeInterval: 15 * time.Second,
	}
}

// Validate reports the first invalid field of c.
func (c ClientConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url must start with http:// or https://, got %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.CacheBackend {
	case CacheBackendSQLite:
		if c.CachePath == "" {
			return fmt.Errorf("cache path is required for the sqlite cache backend")
		}
	case CacheBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("cache backend must be one of sqlite, redis; got %q", c.CacheBackend)
	}
	if c.Namespace == "" {
		return fmt.Errorf("cache namespace is required")
	}
	return nil
}
