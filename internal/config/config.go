package config

import (
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envPrefix = "scoremash"

type Config struct {
	HTTPPort           string        `envconfig:"HTTP_PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxRequestBodySize int64         `envconfig:"MAX_REQUEST_BODY_SIZE" default:"1048576"`

	MongoURI string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB  string `envconfig:"MONGO_DB" default:"scoremash"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"10m"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"scoremash.sid"`
	SecureCookies bool          `envconfig:"SECURE_COOKIES" default:"false"`

	// Empty brokers disable order event publishing.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"order-events"`

	// Empty key disables order emails.
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	MailFrom       string `envconfig:"MAIL_FROM" default:"orders@scoremash.local"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@scoremash.local"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	ShippingCost   string        `envconfig:"SHIPPING_COST" default:"10.00"`
	TaxPercent     int64         `envconfig:"TAX_PERCENT" default:"1"`
	ReservationTTL time.Duration `envconfig:"RESERVATION_TTL" default:"15m"`

	OutboxInterval   time.Duration `envconfig:"OUTBOX_INTERVAL" default:"1s"`
	RecoveryInterval time.Duration `envconfig:"RECOVERY_INTERVAL" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads the configuration from SCOREMASH_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Shipping(); err != nil {
		return errors.Wrap(err, "SCOREMASH_SHIPPING_COST")
	}
	if c.TaxPercent < 0 {
		return errors.New("SCOREMASH_TAX_PERCENT must not be negative")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SCOREMASH_SESSION_TTL must be positive")
	}
	if c.ReservationTTL <= 0 {
		return errors.New("SCOREMASH_RESERVATION_TTL must be positive")
	}
	return nil
}

func (c *Config) Shipping() (domain.Money, error) {
	return domain.ParseMoney(c.ShippingCost)
}

func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) MailEnabled() bool {
	return c.SendGridAPIKey != ""
}
