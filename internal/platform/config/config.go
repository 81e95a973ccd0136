package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the journal server.
type Config struct {
	DBPath        string        `env:"DB_PATH" envDefault:"./data/juvenis.db"`
	ServerPort    int           `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
	Environment   string        `env:"ENV" envDefault:"development"`
	SentryDSN     string        `env:"SENTRY_DSN"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	StorageRoot   string        `env:"STORAGE_ROOT" envDefault:"./data/storage"`
	TrustProxy    bool          `env:"TRUST_PROXY" envDefault:"false"`

	Session   SessionConfig   `envPrefix:"SESSION_"`
	Admin     AdminSeed       `envPrefix:"ADMIN_"`
	LLM       LLMConfig       `envPrefix:"LLM_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// SessionConfig controls how sign-in sessions are issued and carried.
type SessionConfig struct {
	Secret       string        `env:"SECRET"`
	TTL          time.Duration `env:"TTL" envDefault:"12h"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"juvenis_session"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// AdminSeed optionally provisions the first administrator at boot.
type AdminSeed struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

// Enabled reports whether both seed credentials were supplied.
func (a AdminSeed) Enabled() bool {
	return strings.TrimSpace(a.Email) != "" && a.Password != ""
}

// LLMConfig configures the optional news extract summarizer.
type LLMConfig struct {
	Endpoint string `env:"ENDPOINT"`
	APIKey   string `env:"API_KEY"`
	Model    string `env:"MODEL" envDefault:"openai/gpt-4o-mini"`
}

// Enabled reports whether an API key is configured.
func (l LLMConfig) Enabled() bool {
	return strings.TrimSpace(l.APIKey) != ""
}

// RateLimitConfig configures the per-client HTTP rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" envDefault:"10"`
	Burst             int           `env:"BURST" envDefault:"40"`
	ClientTTL         time.Duration `env:"CLIENT_TTL" envDefault:"10m"`
}

const minSessionSecretLength = 32

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	return parse(environment())
}

func parse(values map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: values}); err != nil {
		return nil, eris.Wrap(err, "parsing environment")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return eris.Errorf("invalid SERVER_PORT value: %d", c.ServerPort)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return eris.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(c.StorageRoot) == "" {
		return eris.New("STORAGE_ROOT must not be empty")
	}
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	if c.PublicBaseURL == "" {
		return eris.New("PUBLIC_BASE_URL must not be empty")
	}
	if len(c.Session.Secret) < minSessionSecretLength {
		return eris.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength)
	}
	if c.Session.TTL <= 0 {
		return eris.New("SESSION_TTL must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 || c.RateLimit.ClientTTL <= 0 {
		return eris.New("RATE_LIMIT settings must be positive")
	}
	return nil
}

func environment() map[string]string {
	values := make(map[string]string)
	for _, pair := range os.Environ() {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		values[key] = value
	}
	return values
}
