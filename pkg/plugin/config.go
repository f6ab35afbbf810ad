package plugin

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/johnnybui/prerender-redis-cache/pkg/cache"
	"gopkg.in/yaml.v3"
)

// Configuration errors. A plugin built from a config with any of these
// is disabled.
var (
	// ErrMissingCredentials is returned when no store credentials are configured.
	ErrMissingCredentials = errors.New("missing store credentials")

	// ErrMissingAddress is returned when no store address is configured.
	ErrMissingAddress = errors.New("missing store address")
)

// Credentials authenticate against the Redis store.
type Credentials struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// LoadCredentials reads credentials from a YAML or JSON file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}

	return &creds, nil
}

// Config holds the cache plugin configuration.
type Config struct {
	// Credentials for the Redis store (REQUIRED)
	Credentials *Credentials

	// Address of the Redis store, host:port (REQUIRED)
	Address string

	// CacheExp is how long pages stay fresh: "<N>h" or "<N>d".
	// Empty means pages never expire.
	CacheExp string

	// CrawlStats appends a crawl record for every served or rendered page
	CrawlStats bool

	// StatsMaxLen approximately caps the crawl stats stream (0 = unbounded)
	StatsMaxLen int64

	// SyncWrites makes PageLoaded wait for the cache write before continuing
	SyncWrites bool

	// LocalTTL enables an in-process layer in front of Redis (0 = off)
	LocalTTL time.Duration
}

// Validate checks the configuration and returns the parsed expiration.
// All problems are reported together.
func (c Config) Validate() (cache.Expiration, error) {
	var errs []error

	if c.Credentials == nil {
		errs = append(errs, ErrMissingCredentials)
	}

	if strings.TrimSpace(c.Address) == "" {
		errs = append(errs, ErrMissingAddress)
	}

	exp, err := cache.ParseExpiration(c.CacheExp)
	if err != nil {
		errs = append(errs, err)
	}

	if c.LocalTTL < 0 {
		errs = append(errs, fmt.Errorf("local_ttl must be >= 0 (got %s)", c.LocalTTL))
	}

	return exp, errors.Join(errs...)
}
