package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Transport selects how chat traffic reaches the bot.
const (
	TransportTelegram = "telegram"
	TransportRelay    = "relay"
)

type Config struct {
	Transport        string `envconfig:"TRANSPORT" default:"telegram"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	RelayURL         string `envconfig:"RELAY_URL"`

	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"snipe_checks"`

	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	OracleBaseURL string `envconfig:"ORACLE_BASE_URL"`
	OracleAPIKey  string `envconfig:"ORACLE_API_KEY"`

	SolanaRPCURL string `envconfig:"SOLANA_RPC_URL"`

	PriceTTL           time.Duration `envconfig:"PRICE_TTL" default:"60s"`
	PriceCacheCapacity int           `envconfig:"PRICE_CACHE_CAPACITY" default:"128"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`
}

// Load reads configuration from the environment, with a local .env file
// layered in when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportTelegram:
		if c.TelegramBotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required for the telegram transport")
		}
	case TransportRelay:
		if c.RelayURL == "" {
			return fmt.Errorf("RELAY_URL is required for the relay transport")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}

	if c.PriceTTL <= 0 {
		return fmt.Errorf("PRICE_TTL must be positive")
	}
	if c.PriceCacheCapacity <= 0 {
		return fmt.Errorf("PRICE_CACHE_CAPACITY must be positive")
	}
	return nil
}
