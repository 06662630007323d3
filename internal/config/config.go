// Package config loads application settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the service.
type Config struct {
	AppPort string

	DBDriver    string
	DatabaseDSN string

	JWTSecret string

	RabbitMQURL      string
	RabbitMQExchange string

	LogLevel  string
	LogFormat string

	// TransitionPolicy is "strict" (default) or "permissive". Strict only allows
	// moves along the fulfillment flow and treats delivered and declined as final.
	// Permissive lets the owning baker set any known status from any status.
	TransitionPolicy        string
	RoutingPolicy           string
	CustomOrderPrice        decimal.Decimal
	DeleteRequiresOwnership bool

	CatalogCacheSize int
	CatalogCacheTTL  time.Duration

	NotifyMaxRetries      uint64
	NotifyInitialInterval time.Duration
	NotificationLocale    string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=bakery port=5432 sslmode=disable")
	v.SetDefault("JWT_SECRET", "change_me")
	v.SetDefault("RABBITMQ_URL", "") // empty disables the broker
	v.SetDefault("RABBITMQ_EXCHANGE", "bakery.events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TRANSITION_POLICY", "strict") // "permissive" allows any status change by the owning baker
	v.SetDefault("ROUTING_POLICY", "first")
	v.SetDefault("CUSTOM_ORDER_PRICE", "50")
	v.SetDefault("DELETE_REQUIRES_OWNERSHIP", false)
	v.SetDefault("CATALOG_CACHE_SIZE", 1000)
	v.SetDefault("CATALOG_CACHE_TTL", "30s")
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_INITIAL_INTERVAL", "100ms")
	v.SetDefault("NOTIFICATION_LOCALE", "en")
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	price, err := decimal.NewFromString(v.GetString("CUSTOM_ORDER_PRICE"))
	if err != nil {
		return Config{}, fmt.Errorf("CUSTOM_ORDER_PRICE must be a number: %w", err)
	}

	cfg := Config{
		AppPort:                 v.GetString("APP_PORT"),
		DBDriver:                v.GetString("DB_DRIVER"),
		DatabaseDSN:             v.GetString("DATABASE_DSN"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		RabbitMQURL:             v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:        v.GetString("RABBITMQ_EXCHANGE"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		LogFormat:               v.GetString("LOG_FORMAT"),
		TransitionPolicy:        v.GetString("TRANSITION_POLICY"),
		RoutingPolicy:           v.GetString("ROUTING_POLICY"),
		CustomOrderPrice:        price,
		DeleteRequiresOwnership: v.GetBool("DELETE_REQUIRES_OWNERSHIP"),
		CatalogCacheSize:        v.GetInt("CATALOG_CACHE_SIZE"),
		CatalogCacheTTL:         v.GetDuration("CATALOG_CACHE_TTL"),
		NotifyMaxRetries:        v.GetUint64("NOTIFY_MAX_RETRIES"),
		NotifyInitialInterval:   v.GetDuration("NOTIFY_INITIAL_INTERVAL"),
		NotificationLocale:      v.GetString("NOTIFICATION_LOCALE"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AppPort == "" {
		return fmt.Errorf("APP_PORT is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if err := oneOf("DB_DRIVER", c.DBDriver, "postgres", "sqlite"); err != nil {
		return err
	}
	if err := oneOf("LOG_FORMAT", c.LogFormat, "json", "text"); err != nil {
		return err
	}
	if err := oneOf("LOG_LEVEL", c.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := oneOf("TRANSITION_POLICY", c.TransitionPolicy, "strict", "permissive"); err != nil {
		return err
	}
	if err := oneOf("ROUTING_POLICY", c.RoutingPolicy, "first", "round_robin", "least_loaded"); err != nil {
		return err
	}
	if err := oneOf("NOTIFICATION_LOCALE", c.NotificationLocale, "en", "ru"); err != nil {
		return err
	}
	if c.CustomOrderPrice.IsNegative() {
		return fmt.Errorf("CUSTOM_ORDER_PRICE must not be negative")
	}
	if c.CatalogCacheSize <= 0 {
		return fmt.Errorf("CATALOG_CACHE_SIZE must be positive")
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", key, allowed, value)
}
