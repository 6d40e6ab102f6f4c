// Package config resolves runtime settings: cache location, NCBI API
// key, and the overall resolution timeout. Values come from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables recognized by the ck binary.
const (
	EnvCacheDir   = "CITEKIT_CACHE"
	EnvNCBIAPIKey = "NCBI_API_KEY"
)

// DefaultTimeout bounds a whole batch resolution run unless overridden
// on the command line.
const DefaultTimeout = 120 * time.Second

// Config holds the resolved runtime settings.
type Config struct {
	// CacheDir is the directory holding the sqlite response cache.
	CacheDir string
	// NCBIAPIKey raises NCBI E-utilities rate limits when set.
	NCBIAPIKey string
	// UserAgent overrides the default User-Agent header when set.
	UserAgent string
	// FetchURLTitles enables fetching page titles for url citekeys.
	FetchURLTitles bool
	// RateLimits overrides per-source request rates (requests/second).
	RateLimits map[string]float64
}

// Load resolves configuration in precedence order: environment variables
// first (with a .env file in the working directory read when present,
// matching how API keys are usually provided), then the per-user global
// config file, then built-in defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	global, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	cacheDir := os.Getenv(EnvCacheDir)
	if cacheDir == "" {
		cacheDir = global.CacheDir
	}
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locating cache directory: %w", err)
		}
		cacheDir = filepath.Join(base, "citekit")
	}

	apiKey := os.Getenv(EnvNCBIAPIKey)
	if apiKey == "" {
		apiKey = global.NCBIAPIKey
	}

	return &Config{
		CacheDir:       ExpandPath(cacheDir),
		NCBIAPIKey:     apiKey,
		UserAgent:      global.UserAgent,
		FetchURLTitles: global.FetchURLTitles,
		RateLimits:     global.RateLimits,
	}, nil
}

// CachePath returns the path of the sqlite response cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir, "requests.db")
}

// ExpandPath expands a leading ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
