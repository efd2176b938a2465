package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Tracking TrackingConfig `yaml:"tracking"`
	Mailer   MailerConfig   `yaml:"mailer"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TrackingConfig holds tracking URL settings. BaseURL is the public origin
// the tracking pixel and click-redirect links point at.
type TrackingConfig struct {
	BaseURL string `yaml:"base_url"`
}

// MailerConfig selects and configures the outbound mail transport.
type MailerConfig struct {
	// Provider is "ses" or "sparkpost".
	Provider       string `yaml:"provider"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	SparkPost SparkPostConfig `yaml:"sparkpost"`
	SES       SESConfig       `yaml:"ses"`
}

// Timeout returns the transport timeout as a duration.
func (c MailerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SparkPostConfig holds SparkPost API credentials
type SparkPostConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SESConfig holds AWS SES credentials
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// DatabaseConfig holds the persistence settings. With an empty URL the
// server falls back to the in-memory store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the stats cache settings. Empty Addr disables caching.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// CacheTTL returns the stats snapshot TTL as a duration.
func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// DispatchConfig holds send-batch settings
type DispatchConfig struct {
	Workers int `yaml:"workers"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML config and overrides secrets and endpoints
// from environment variables (a local .env file is honored if present).
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if baseURL := os.Getenv("TRACKING_BASE_URL"); baseURL != "" {
		cfg.Tracking.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if from := os.Getenv("MAILER_FROM_EMAIL"); from != "" {
		cfg.Mailer.FromEmail = from
	}
	if apiKey := os.Getenv("SPARKPOST_API_KEY"); apiKey != "" {
		cfg.Mailer.SparkPost.APIKey = apiKey
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Mailer.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Mailer.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Mailer.SES.Region = region
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Tracking.BaseURL == "" {
		c.Tracking.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Mailer.Provider == "" {
		c.Mailer.Provider = "sparkpost"
	}
	if c.Mailer.TimeoutSeconds == 0 {
		c.Mailer.TimeoutSeconds = 30
	}
	if c.Mailer.SparkPost.BaseURL == "" {
		c.Mailer.SparkPost.BaseURL = "https://api.sparkpost.com"
	}
	if c.Mailer.SES.Region == "" {
		c.Mailer.SES.Region = "us-west-2"
	}
	if c.Redis.CacheTTLSeconds == 0 {
		c.Redis.CacheTTLSeconds = 60
	}
	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = 8
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Tracking.BaseURL == "" {
		return fmt.Errorf("tracking.base_url is required")
	}
	if c.Mailer.FromEmail == "" {
		return fmt.Errorf("mailer.from_email is required")
	}
	switch c.Mailer.Provider {
	case "ses", "sparkpost":
	default:
		return fmt.Errorf("mailer.provider must be ses or sparkpost, got %q", c.Mailer.Provider)
	}
	return nil
}
