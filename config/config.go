package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"event-hosting/utils"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	// Server configuration
	Environment string

	// Document store: "pocketbase" or "memory"
	DocStore string

	// Redis configuration, empty URL disables caching, revocation and rate limiting
	RedisURL string
	CacheTTL time.Duration

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	FeedChannel        string

	// Session configuration
	SessionSecret string
	SessionTTL    time.Duration
	SessionCookie string
	SecureCookies bool
	BcryptCost    int

	// Auth endpoint throttling
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Monitoring
	EnableMetrics   bool
	MetricsInterval time.Duration

	file map[string]string
}

// LoadConfig reads the optional YAML file named by CONFIG_FILE and then the
// process environment. Environment values win over file values.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		cfg.file = file
	}

	// Server
	cfg.Environment = cfg.getEnv("ENVIRONMENT", EnvDevelopment)
	cfg.DocStore = cfg.getEnv("DOCSTORE", "pocketbase")

	// Redis
	cfg.RedisURL = cfg.getEnv("REDIS_URL", "localhost:6379")
	cfg.CacheTTL = cfg.getEnvAsDuration("CACHE_TTL", "30s")

	// PubNub
	cfg.PubNubPublishKey = cfg.getEnv("PUBNUB_PUBLISH_KEY", "")
	cfg.PubNubSubscribeKey = cfg.getEnv("PUBNUB_SUBSCRIBE_KEY", "")
	cfg.PubNubSecretKey = cfg.getEnv("PUBNUB_SECRET_KEY", "")
	cfg.FeedChannel = cfg.getEnv("PUBNUB_FEED_CHANNEL", "events-feed")

	// Session
	cfg.SessionSecret = cfg.getEnv("SESSION_SECRET", "")
	cfg.SessionTTL = cfg.getEnvAsDuration("SESSION_TTL", "24h")
	cfg.SessionCookie = cfg.getEnv("SESSION_COOKIE", "session_token")
	cfg.SecureCookies = cfg.getEnvAsBool("SECURE_COOKIES", false)
	cfg.BcryptCost = cfg.getEnvAsInt("BCRYPT_COST", 10)

	// Throttling
	cfg.AuthRateLimit = cfg.getEnvAsInt("AUTH_RATE_LIMIT", 10)
	cfg.AuthRateWindow = cfg.getEnvAsDuration("AUTH_RATE_WINDOW", "1m")

	// Monitoring
	cfg.EnableMetrics = cfg.getEnvAsBool("ENABLE_METRICS", true)
	cfg.MetricsInterval = cfg.getEnvAsDuration("METRICS_INTERVAL", "30s")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values. A development config without a session
// secret gets a random one, so sessions do not survive restarts.
func (c *Config) Validate() error {
	switch c.DocStore {
	case "pocketbase", "memory":
	default:
		return fmt.Errorf("config: unknown DOCSTORE %q", c.DocStore)
	}

	if c.SessionSecret == "" {
		if c.Environment == EnvProduction {
			return errors.New("config: SESSION_SECRET is required in production")
		}
		secret, err := utils.GenerateCode(32)
		if err != nil {
			return fmt.Errorf("config: generate session secret: %w", err)
		}
		slog.Warn("SESSION_SECRET not set, using an ephemeral secret", "environment", c.Environment)
		c.SessionSecret = secret
	}

	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := c.file[key]; value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvAsInt(key string, defaultValue int) int {
	valueStr := c.getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := c.getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := c.getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
