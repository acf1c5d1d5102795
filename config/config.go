package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	ListenAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIKey     string
	RateLimit  int64
	RateWindow time.Duration

	TaskWorkers int
	TaskTTL     time.Duration
	// MaxInflight caps the probe units of all running sessions combined.
	MaxInflight int

	Concurrency     int
	ProbeTimeout    time.Duration
	SessionDeadline time.Duration
	ProbeRate       float64

	LogLevel string
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	p := parser{}
	cfg := Config{
		ListenAddr:      getenv("PORTSCAN_LISTEN_ADDR", ":8080"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         p.int("REDIS_DB", 0),
		APIKey:          os.Getenv("PORTSCAN_API_KEY"),
		RateLimit:       int64(p.int("PORTSCAN_RATE_LIMIT", 60)),
		RateWindow:      p.duration("PORTSCAN_RATE_WINDOW", time.Minute),
		TaskWorkers:     p.int("PORTSCAN_TASK_WORKERS", 4),
		TaskTTL:         p.duration("PORTSCAN_TASK_TTL", 24*time.Hour),
		MaxInflight:     p.int("PORTSCAN_MAX_INFLIGHT", 512),
		Concurrency:     p.int("PORTSCAN_CONCURRENCY", 100),
		ProbeTimeout:    p.duration("PORTSCAN_PROBE_TIMEOUT", 2*time.Second),
		SessionDeadline: p.duration("PORTSCAN_SESSION_DEADLINE", 0),
		ProbeRate:       p.float("PORTSCAN_PROBE_RATE", 0),
		LogLevel:        getenv("PORTSCAN_LOG_LEVEL", "info"),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.TaskWorkers < 1:
		return fmt.Errorf("PORTSCAN_TASK_WORKERS must be positive, got %d", c.TaskWorkers)
	case c.Concurrency < 1:
		return fmt.Errorf("PORTSCAN_CONCURRENCY must be positive, got %d", c.Concurrency)
	case c.MaxInflight < 1:
		return fmt.Errorf("PORTSCAN_MAX_INFLIGHT must be positive, got %d", c.MaxInflight)
	case c.ProbeTimeout <= 0:
		return fmt.Errorf("PORTSCAN_PROBE_TIMEOUT must be positive, got %s", c.ProbeTimeout)
	case c.SessionDeadline < 0:
		return fmt.Errorf("PORTSCAN_SESSION_DEADLINE must not be negative, got %s", c.SessionDeadline)
	case c.ProbeRate < 0:
		return fmt.Errorf("PORTSCAN_PROBE_RATE must not be negative, got %g", c.ProbeRate)
	case c.TaskTTL < 0:
		return fmt.Errorf("PORTSCAN_TASK_TTL must not be negative, got %s", c.TaskTTL)
	case c.RateLimit < 1:
		return fmt.Errorf("PORTSCAN_RATE_LIMIT must be positive, got %d", c.RateLimit)
	case c.RateWindow <= 0:
		return fmt.Errorf("PORTSCAN_RATE_WINDOW must be positive, got %s", c.RateWindow)
	}
	return nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parser keeps the first malformed variable so Load can report it after
// reading everything.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *parser) float(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

// duration accepts Go duration strings and bare integers as seconds.
func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}
