package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (KART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (KART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Redis        RedisConfig
	Kafka        KafkaConfig
	Shipping     ShippingConfig
	Currency     CurrencyConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
}

// RedisConfig configures the distributed order lock. Without a URL orders
// are locked in process, which is only safe with a single replica.
type RedisConfig struct {
	URL     string        `default:"" usage:"Redis URL for order locks (redis://host:6379/0)" flag:"redis-url"`
	LockTTL time.Duration `default:"10s" usage:"Order lock expiry" flag:"lock-ttl"`
}

// KafkaConfig configures order event publishing. Events are dropped when no
// brokers are set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka bootstrap brokers" flag:"kafka-brokers"`
	Topic   string   `default:"kart.orders" usage:"Topic for order events" flag:"kafka-topic"`
}

// ShippingConfig sets the flat shipping fee in minor units.
type ShippingConfig struct {
	FeeMinor      int64 `default:"0" usage:"Flat shipping fee in minor units, 0 disables shipping" flag:"shipping-fee"`
	FreeOverMinor int64 `default:"0" usage:"Items total from which shipping is free, 0 never waives" flag:"free-shipping-over"`
}

// CurrencyConfig describes the store currency.
type CurrencyConfig struct {
	Exponent int32 `default:"2" usage:"Number of minor unit digits of the store currency"`
}

// CORSConfig configures cross-origin access for browser storefronts.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed origins, * allows any" flag:"cors-origins"`
	AllowCredentials bool     `default:"false" usage:"Allow cookies and auth headers cross-origin" flag:"cors-credentials"`
}

// RateLimitConfig limits requests per API key, or per client IP for
// anonymous calls. Counters live in Redis when it is configured.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Requests allowed per window, 0 disables limiting" flag:"rate-limit"`
	Window time.Duration `default:"1m" usage:"Rate limit window" flag:"rate-limit-window"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set KART_DATABASE_URL or DATABASE_URL")
	}
	if c.Currency.Exponent < 0 || c.Currency.Exponent > 8 {
		return errors.Errorf("currency exponent %d out of range [0, 8]", c.Currency.Exponent)
	}
	if c.Shipping.FeeMinor < 0 || c.Shipping.FreeOverMinor < 0 {
		return errors.New("shipping amounts must not be negative")
	}
	if c.RateLimit.Max < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.RateLimit.Max > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	// A single env var holding "a:9092,b:9092" arrives as one element.
	c.Kafka.Brokers = splitList(c.Kafka.Brokers)
	c.CORS.Origins = splitList(c.CORS.Origins)
}

func splitList(v []string) []string {
	if len(v) != 1 || !strings.Contains(v[0], ",") {
		return v
	}
	out := strings.Split(v[0], ",")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}
