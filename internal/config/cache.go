package config

import (
	"strings"
	"time"
)

// Catalog cache key strategies understood by middleware.NewRedisCache.
const (
	CacheKeyRoute            = "route"
	CacheKeyRouteQuery       = "route_query"
	CacheKeyMethodRoute      = "method_route"
	CacheKeyMethodRouteQuery = "method_route_query"
)

const (
	defaultCacheTTL     = 30 * time.Second
	defaultCacheMaxBody = 1 << 20
)

// CacheConfig drives the catalog response cache.  Caching is off when
// Enabled is false or Redis is unavailable.  Only GET and HEAD can be
// cached; every other method counts as a catalog write and invalidates
// Prefix.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig builds a CacheConfig from CACHE_* variables.  Unsafe
// methods in CACHE_METHODS are ignored, an unknown CACHE_KEY_STRATEGY
// falls back to route_query and non-positive sizes or TTLs fall back to
// their defaults.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      cacheableMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", defaultCacheTTL),
		KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", CacheKeyRouteQuery)),
		Prefix:       strings.TrimSuffix(envStr("CACHE_PREFIX", "theatre:cache"), ":"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", defaultCacheMaxBody),
	}
	switch cfg.KeyStrategy {
	case CacheKeyRoute, CacheKeyRouteQuery, CacheKeyMethodRoute, CacheKeyMethodRouteQuery:
	default:
		cfg.KeyStrategy = CacheKeyRouteQuery
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultCacheMaxBody
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = map[string]bool{"GET": true}
	}
	return cfg
}

// cacheableMethods parses a comma-separated list, keeping GET and HEAD.
func cacheableMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		switch p = strings.ToUpper(strings.TrimSpace(p)); p {
		case "GET", "HEAD":
			m[p] = true
		}
	}
	return m
}
