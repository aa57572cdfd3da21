package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process-level configuration. The completion provider has its
// own section in llm.Config.
type Config struct {
	Port        string `envconfig:"PORT" default:"5050"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:5174"`
	SecureCookies  bool     `envconfig:"SECURE_COOKIES" default:"false"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Empty disables the redis cache in front of the current AI response.
	RedisURL         string        `envconfig:"REDIS_URL"`
	ResponseCacheTTL time.Duration `envconfig:"RESPONSE_CACHE_TTL" default:"10m"`

	// Replaces the random fallback pick and random consistency score with
	// fixed values. Useful for reproducible runs.
	DeterministicPlaceholders bool `envconfig:"DETERMINISTIC_PLACEHOLDERS" default:"false"`
}

// LoadDotEnv reads .env.local if present. Variables already set in the
// environment win.
func LoadDotEnv() {
	_ = godotenv.Load(".env.local")
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, strings.TrimSuffix(o, "/"))
		}
	}
	cfg.AllowedOrigins = origins

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is empty")
	}
	if c.ResponseCacheTTL < 0 {
		return errors.New("RESPONSE_CACHE_TTL must not be negative")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return "0.0.0.0:" + c.Port
}
