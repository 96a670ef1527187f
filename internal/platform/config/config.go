package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the process configuration, read from VETDESK_* environment variables.
type Config struct {
	Server       Server
	Directory    Directory
	Registration Registration
	Redis        RedisConfig
	Logging      Logging
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `validate:"required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	// OwnerTokenKey verifies owner bearer tokens. Empty disables the check.
	OwnerTokenKey   string        `validate:"omitempty,min=16"`
}

// Directory configures the Directory Service client.
type Directory struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
	// SigningKey signs the short-lived bearer tokens sent to the Directory Service.
	SigningKey       string `validate:"required,min=16"`
	Issuer           string `validate:"required"`
	FailureThreshold int    `validate:"gte=1"`
	BreakerCooldown  time.Duration
}

// Registration tunes the registration engine.
type Registration struct {
	DebounceDelay   time.Duration `validate:"gt=0"`
	SpeciesCache    string        `validate:"oneof=memory redis none"`
	SpeciesCacheTTL time.Duration `validate:"gte=0"`
}

// RedisConfig is only required when Registration.SpeciesCache is "redis".
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Logging struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// DefaultDebounceDelay is the pause after the last keystroke before a search fires.
const DefaultDebounceDelay = 500 * time.Millisecond

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) (Config, error) {
	env := envReader{getenv: getenv}
	cfg := Config{
		Server: Server{
			Addr:            env.str("VETDESK_ADDR", ":8080"),
			ShutdownTimeout: env.duration("VETDESK_SHUTDOWN_TIMEOUT", 10*time.Second),
			OwnerTokenKey:   env.str("VETDESK_OWNER_TOKEN_KEY", ""),
		},
		Directory: Directory{
			BaseURL: env.str("VETDESK_DIRECTORY_URL", "http://localhost:9090"),
			Timeout: env.duration("VETDESK_DIRECTORY_TIMEOUT", 5*time.Second),
			// Use a default for development - should be overridden in production
			SigningKey:       env.str("VETDESK_DIRECTORY_SIGNING_KEY", "dev-directory-key-change-me"),
			Issuer:           env.str("VETDESK_DIRECTORY_ISSUER", "vetdesk"),
			FailureThreshold: env.int("VETDESK_DIRECTORY_FAILURE_THRESHOLD", 5),
			BreakerCooldown:  env.duration("VETDESK_DIRECTORY_BREAKER_COOLDOWN", 5*time.Second),
		},
		Registration: Registration{
			DebounceDelay:   env.duration("VETDESK_DEBOUNCE_DELAY", DefaultDebounceDelay),
			SpeciesCache:    env.str("VETDESK_SPECIES_CACHE", "memory"),
			SpeciesCacheTTL: env.duration("VETDESK_SPECIES_CACHE_TTL", 10*time.Minute),
		},
		Redis: RedisConfig{
			URL:          env.str("VETDESK_REDIS_URL", ""),
			PoolSize:     env.int("VETDESK_REDIS_POOL_SIZE", 10),
			MinIdleConns: env.int("VETDESK_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("VETDESK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("VETDESK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("VETDESK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Logging: Logging{
			Level:  env.str("VETDESK_LOG_LEVEL", "info"),
			Format: env.str("VETDESK_LOG_FORMAT", "json"),
		},
	}
	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and cross-field rules.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Registration.SpeciesCache == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("invalid configuration: VETDESK_REDIS_URL is required when the species cache is redis")
	}
	return nil
}

type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("parse %s: %w", key, err)
	}
}
