package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Config struct {
	KafkaBrokers    string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaTopic      string `env:"KAFKA_TOPIC" envDefault:"order-notifications"`
	KafkaGroupID    string `env:"KAFKA_GROUP_ID" envDefault:"order-notifier"`
	KafkaDLQTopic   string `env:"KAFKA_DLQ_TOPIC" envDefault:"order-notifications-dlq"`
	KafkaMaxRetries int    `env:"KAFKA_MAX_RETRIES" envDefault:"5"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseURL     string `env:"DATABASE_URL" envDefault:""`
	PostgresHost    string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort    string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser    string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPass    string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB      string `env:"POSTGRES_DB" envDefault:"shop"`
	PostgresSSLMode string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Empty disables the idempotency guard.
	RedisAddr      string        `env:"REDIS_ADDR" envDefault:""`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	VNPayTmnCode      string `env:"VNPAY_TMN_CODE" envDefault:""`
	VNPaySecretKey    string `env:"VNPAY_SECRET_KEY" envDefault:""`
	VNPayHost         string `env:"VNPAY_HOST" envDefault:"https://sandbox.vnpayment.vn"`
	VNPayReturnURL    string `env:"VNPAY_RETURN_URL" envDefault:"http://localhost:8080/api/payments/vnpay-return"`
	VNPayExchangeRate string `env:"VNPAY_EXCHANGE_RATE" envDefault:"25000"`
	FrontendURL       string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	ProductCacheTTL   time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"5m"`
	CallbackRateLimit float64       `env:"CALLBACK_RATE_LIMIT" envDefault:"20"`
	CallbackBurst     int           `env:"CALLBACK_BURST" envDefault:"40"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func LoadConfig(_ string) (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("config parse: %w", err)
	}
	if _, err := c.ExchangeRate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) KafkaBrokersSlice() []string {
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) PgDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPass,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func (c Config) ExchangeRate() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.VNPayExchangeRate)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("config parse: VNPAY_EXCHANGE_RATE %q must be a positive number", c.VNPayExchangeRate)
	}
	return d, nil
}

// SetupLogger applies LOG_LEVEL and LOG_FORMAT to the global logrus logger.
func (c Config) SetupLogger() {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	if strings.EqualFold(c.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
