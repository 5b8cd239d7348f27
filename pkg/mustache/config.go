package mustache

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxRecursionDepth bounds nested sections and partials in one render.
const DefaultMaxRecursionDepth = 256

// Config contains all configuration options for the Mustache engine
type Config struct {
	// MaxRecursionDepth is the deepest nesting of sections and partials a
	// render may reach.
	MaxRecursionDepth int
	// IgnoreCaseOnKeyLookup makes map keys and member names match case-insensitively.
	IgnoreCaseOnKeyLookup bool
	// SkipRecursiveLookup resolves names only against the innermost scope.
	SkipRecursiveLookup bool
	// ThrowOnDataMiss makes unresolved names fail the render.
	ThrowOnDataMiss bool
	// StartDelimiters are in effect at the start of every template.
	StartDelimiters Delimiters
	// DelimiterCacheSize bounds the compiled matchers kept per delimiter pair.
	DelimiterCacheSize int
	// CacheMaxSize is the maximum number of parsed templates to cache. 0 disables caching.
	CacheMaxSize int
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
}

var (
	// Initialized before any package level engine is built.
	globalConfig      = ConfigFromEnvironment()
	globalConfigMutex sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxRecursionDepth:  DefaultMaxRecursionDepth,
		StartDelimiters:    DefaultDelimiters,
		DelimiterCacheSize: DefaultDelimiterCacheSize,
		CacheMaxSize:       100,
		CacheTTL:           0,
		LogLevel:           "info",
	}
}

// ConfigFromEnvironment creates a configuration from environment variables.
// Values that do not parse are ignored.
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// MUSTACHE_MAX_RECURSION_DEPTH
	if val := os.Getenv("MUSTACHE_MAX_RECURSION_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRecursionDepth = depth
		}
	}

	// MUSTACHE_IGNORE_CASE
	if val := os.Getenv("MUSTACHE_IGNORE_CASE"); val != "" {
		config.IgnoreCaseOnKeyLookup = parseBool(val)
	}

	// MUSTACHE_SKIP_RECURSIVE_LOOKUP
	if val := os.Getenv("MUSTACHE_SKIP_RECURSIVE_LOOKUP"); val != "" {
		config.SkipRecursiveLookup = parseBool(val)
	}

	// MUSTACHE_STRICT
	if val := os.Getenv("MUSTACHE_STRICT"); val != "" {
		config.ThrowOnDataMiss = parseBool(val)
	}

	// MUSTACHE_DELIMITERS, e.g. "<% %>"
	if val := os.Getenv("MUSTACHE_DELIMITERS"); val != "" {
		if d, err := ParseDelimiters(val); err == nil {
			config.StartDelimiters = d
		}
	}

	// MUSTACHE_DELIMITER_CACHE_SIZE
	if val := os.Getenv("MUSTACHE_DELIMITER_CACHE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.DelimiterCacheSize = size
		}
	}

	// MUSTACHE_CACHE_MAX_SIZE
	if val := os.Getenv("MUSTACHE_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	// MUSTACHE_CACHE_TTL
	if val := os.Getenv("MUSTACHE_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	// MUSTACHE_LOG_LEVEL
	if val := os.Getenv("MUSTACHE_LOG_LEVEL"); val != "" {
		config.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	return config
}

// NewConfigWithDefaults creates a new configuration with defaults applied to
// unset fields. CacheMaxSize is taken as given since 0 disables the cache.
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	config := *overrides

	if config.MaxRecursionDepth == 0 {
		config.MaxRecursionDepth = defaults.MaxRecursionDepth
	}

	if config.StartDelimiters == (Delimiters{}) {
		config.StartDelimiters = defaults.StartDelimiters
	}

	if config.DelimiterCacheSize == 0 {
		config.DelimiterCacheSize = defaults.DelimiterCacheSize
	}

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxRecursionDepth <= 0 {
		return errors.New("max recursion depth must be positive")
	}

	if err := c.StartDelimiters.Validate(); err != nil {
		return fmt.Errorf("start delimiters %q: %w", c.StartDelimiters.String(), err)
	}

	if c.DelimiterCacheSize < 0 {
		return errors.New("delimiter cache size cannot be negative")
	}

	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	return nil
}

// contextSettings derives the lookup rules of a render from the config.
func (c *Config) contextSettings() *ContextSettings {
	s := NewContextSettings()
	s.IgnoreCase = c.IgnoreCaseOnKeyLookup
	s.SkipRecursiveLookup = c.SkipRecursiveLookup
	s.ThrowOnDataMiss = c.ThrowOnDataMiss
	return s
}

// GetGlobalConfig returns a copy of the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Outside the lock: the logger reads the config back.
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
