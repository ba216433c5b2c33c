package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	// RedisURL is a host:port address. Empty keeps carts and locks in process.
	RedisURL       string   `envconfig:"REDIS_URL"`
	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS"`
	NatsURL        string   `envconfig:"NATS_URL"`
	JaegerEndpoint string   `envconfig:"JAEGER_ENDPOINT"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	// ReturnURLHosts are the hosts the hosted payment page may redirect back to.
	ReturnURLHosts []string `envconfig:"RETURN_URL_ALLOWED_HOSTS"`

	PaymentExpiry time.Duration `envconfig:"PAYMENT_EXPIRY" default:"24h"`
	CartTTL       time.Duration `envconfig:"CART_TTL" default:"24h"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"30s"`

	Gateway GatewayConfig
}

type GatewayConfig struct {
	BaseURL           string        `envconfig:"GATEWAY_BASE_URL" default:"http://localhost:8080/api/payment/mock-pay"`
	SuccessRate       int           `envconfig:"GATEWAY_SUCCESS_RATE" default:"85"`
	ProcessLatencyMin time.Duration `envconfig:"GATEWAY_PROCESS_LATENCY_MIN" default:"1s"`
	ProcessLatencyMax time.Duration `envconfig:"GATEWAY_PROCESS_LATENCY_MAX" default:"3s"`
	VerifyLatencyMin  time.Duration `envconfig:"GATEWAY_VERIFY_LATENCY_MIN" default:"500ms"`
	VerifyLatencyMax  time.Duration `envconfig:"GATEWAY_VERIFY_LATENCY_MAX" default:"1500ms"`
	RefundLatencyMin  time.Duration `envconfig:"GATEWAY_REFUND_LATENCY_MIN" default:"1500ms"`
	RefundLatencyMax  time.Duration `envconfig:"GATEWAY_REFUND_LATENCY_MAX" default:"3500ms"`
	Seed              int64         `envconfig:"GATEWAY_SEED"`

	BreakerFailures    uint32        `envconfig:"GATEWAY_BREAKER_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"GATEWAY_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StorageDriver = strings.ToLower(c.StorageDriver)
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.Gateway.SuccessRate < 0 || c.Gateway.SuccessRate > 100 {
		return fmt.Errorf("GATEWAY_SUCCESS_RATE must be between 0 and 100, got %d", c.Gateway.SuccessRate)
	}
	for name, r := range map[string][2]time.Duration{
		"PROCESS": {c.Gateway.ProcessLatencyMin, c.Gateway.ProcessLatencyMax},
		"VERIFY":  {c.Gateway.VerifyLatencyMin, c.Gateway.VerifyLatencyMax},
		"REFUND":  {c.Gateway.RefundLatencyMin, c.Gateway.RefundLatencyMax},
	} {
		if r[0] < 0 || r[1] < r[0] {
			return fmt.Errorf("GATEWAY_%s_LATENCY range is invalid: %s..%s", name, r[0], r[1])
		}
	}
	return nil
}
