// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	ClockSystem = "system"
	ClockManual = "manual"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Store       string `env:"STORE" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	Admin                      string          `env:"ESCROW_ADMIN" envDefault:"admin"`
	Goal                       decimal.Decimal `env:"ESCROW_GOAL" envDefault:"100"`
	Duration                   time.Duration   `env:"ESCROW_DURATION" envDefault:"720h"`
	Custody                    string          `env:"ESCROW_CUSTODY_ACCOUNT"`
	BlockRefundWhenGoalReached bool            `env:"ESCROW_BLOCK_REFUND_WHEN_GOAL_REACHED" envDefault:"false"`

	Clock string `env:"CLOCK" envDefault:"system"`
}

// Load reads the optional dotenv files, then parses the environment.
// Variables already set in the environment win over dotenv values.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	switch c.Clock {
	case ClockSystem, ClockManual:
	default:
		return fmt.Errorf("unknown CLOCK %q", c.Clock)
	}
	return nil
}
