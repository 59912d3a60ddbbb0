package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	RedisURL  string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// StartingBalance is credited to a wallet the first time it is
	// read. Zero means users must top up before gifting.
	StartingBalance int64 `env:"STARTING_BALANCE" envDefault:"0"`

	// AllowSelfGift permits gifting a stream the sender hosts.
	AllowSelfGift bool `env:"ALLOW_SELF_GIFT" envDefault:"true"`

	// GiftDedupWindow is how long a client idempotency key blocks a
	// retried gift send.
	GiftDedupWindow time.Duration `env:"GIFT_DEDUP_WINDOW" envDefault:"5m"`

	DefaultBattleDuration time.Duration `env:"BATTLE_DURATION" envDefault:"5m"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
