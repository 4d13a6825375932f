package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config carries all runtime settings. Values are read from the environment,
// with an optional .env file loaded first for local development.
type Config struct {
	Env          string `env:"ENV" env-default:"development"`
	Port         string `env:"PORT" env-default:"8080"`
	DatabasePath string `env:"DATABASE_PATH" env-default:"merlin.db"`
	Debug        bool   `env:"DEBUG" env-default:"false"`

	// JWTSecret signs client API tokens. SweepSecret protects the sweep
	// trigger endpoint and is shared with the periodic caller.
	JWTSecret   string `env:"JWT_SECRET" env-default:"merlin-dev-secret"`
	SweepSecret string `env:"SWEEP_SECRET"`

	// EncryptionSecret is the passphrase the custody vault derives its AEAD
	// key from. It must be set outside development.
	EncryptionSecret string `env:"ENCRYPTION_SECRET"`

	RPCURL            string `env:"RPC_URL" env-default:"https://eth.llamarpc.com"`
	AggregatorBaseURL string `env:"AGGREGATOR_BASE_URL" env-default:"https://api.0x.org"`
	OraclePrimaryURL  string `env:"ORACLE_PRIMARY_URL" env-default:"https://public-api.birdeye.so"`
	OracleFallbackURL string `env:"ORACLE_FALLBACK_URL" env-default:"https://api.coingecko.com"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" env-default:"1m"`
}

var ErrMissingEncryptionSecret = errors.New("ENCRYPTION_SECRET must be set outside development")

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.EncryptionSecret == "" {
		if cfg.Env == "production" {
			return nil, ErrMissingEncryptionSecret
		}
		cfg.EncryptionSecret = "merlin-default-secret-change-in-production"
	}

	return &cfg, nil
}
