package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the client.
type Config struct {
	AppName     string
	Environment string
	API         APIConfig
	Store       StoreConfig
	Session     SessionConfig
	Stub        StubConfig
	Logger      LoggerConfig
	Shutdown    time.Duration
}

type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxConns       int
}

type StoreConfig struct {
	Backend    string
	BoltPath   string
	BoltBucket string
	Redis      RedisConfig
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

type SessionConfig struct {
	RedirectDelay       time.Duration
	RedirectCooldown    time.Duration
	ExpiryCheckInterval time.Duration
}

// StubConfig configures the local fake API used for development.
type StubConfig struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
	Output   string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the client can start without any setup.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "wishgift"),
		Environment: getString("APP_ENV", "development"),
		API: APIConfig{
			BaseURL:        strings.TrimRight(getString("API_BASE_URL", "http://localhost:8080"), "/"),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 5*time.Second),
			MaxConns:       getInt("API_MAX_CONNS", 16),
		},
		Store: StoreConfig{
			Backend:    getString("STORE_BACKEND", "bolt"),
			BoltPath:   getString("BOLTDB_PATH", "./data/session.db"),
			BoltBucket: getString("BOLTDB_BUCKET", "session"),
			Redis: RedisConfig{
				URL:      getString("REDIS_URL", "redis://localhost:6379"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       getInt("REDIS_DB", 0),
				Prefix:   getString("REDIS_PREFIX", "wishgift:session:"),
				TTL:      getDuration("SESSION_TTL", 0),
			},
		},
		Session: SessionConfig{
			RedirectDelay:       getDuration("REDIRECT_DELAY", 100*time.Millisecond),
			RedirectCooldown:    getDuration("REDIRECT_FLAG_COOLDOWN", time.Second),
			ExpiryCheckInterval: getDuration("EXPIRY_CHECK_INTERVAL", 30*time.Second),
		},
		Stub: StubConfig{
			Addr:      getString("STUB_ADDR", "127.0.0.1:8080"),
			JWTSecret: getString("STUB_JWT_SECRET", "wishgift-dev-secret"),
			TokenTTL:  getDuration("STUB_TOKEN_TTL", 24*time.Hour),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "console"),
			Output:   getString("LOG_OUTPUT", "stderr"),
		},
		Shutdown: getDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL %q", c.API.BaseURL)
	}
	switch c.Store.Backend {
	case "bolt", "redis":
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q (want bolt or redis)", c.Store.Backend)
	}
	if c.Session.RedirectDelay < 0 || c.Session.RedirectCooldown < 0 {
		return fmt.Errorf("redirect timings must not be negative")
	}
	return nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
