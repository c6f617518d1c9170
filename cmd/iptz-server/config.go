package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the deployable server configuration. Every field has a sane
// default; a config file only needs to name what it changes.
type Config struct {
	Listen             string `toml:"listen"`               // host:port for the API
	MaxMindPath        string `toml:"maxmind_path"`         // optional GeoLite2 City database for local lookups
	CacheCapacity      int    `toml:"cache_capacity"`       // max cached responses
	CacheTTLMinutes    int    `toml:"cache_ttl_minutes"`    // response cache lifetime
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"` // per-client request budget
	TrustProxyHeader   bool   `toml:"trust_proxy_header"`   // honor X-Forwarded-For from the upstream proxy
}

func defaultConfig() *Config {
	return &Config{
		Listen:             ":8080",
		CacheCapacity:      10_000,
		CacheTTLMinutes:    15,
		RateLimitPerMinute: 30,
	}
}

// LoadConfig reads a TOML file over the defaults. An empty filename returns
// the defaults untouched.
func LoadConfig(filename string) (*Config, error) {
	c := defaultConfig()
	if filename == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(filename, c); err != nil {
		return nil, fmt.Errorf("could not load config file from %q: %w", filename, err)
	}
	return c, nil
}
