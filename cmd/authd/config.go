package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type serverConfig struct {
	ListenAddr      string        `env:"AUTHD_LISTEN_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"AUTHD_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	RedisAddr     string `env:"AUTHD_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"AUTHD_REDIS_PASSWORD"`
	RedisDB       int    `env:"AUTHD_REDIS_DB" envDefault:"0"`

	PostgresDSN string `env:"AUTHD_POSTGRES_DSN,required"`

	JWTSecret  string        `env:"AUTHD_JWT_SECRET,required"`
	JWTIssuer  string        `env:"AUTHD_JWT_ISSUER" envDefault:"authd"`
	AccessTTL  time.Duration `env:"AUTHD_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"AUTHD_REFRESH_TTL" envDefault:"360h"`

	AttemptLimit    int           `env:"AUTHD_LOGIN_ATTEMPT_LIMIT" envDefault:"5"`
	LockoutDuration time.Duration `env:"AUTHD_LOGIN_LOCKOUT" envDefault:"15m"`
	GuardFailClosed bool          `env:"AUTHD_GUARD_FAIL_CLOSED" envDefault:"false"`

	ResetTokenTTL     time.Duration `env:"AUTHD_RESET_TOKEN_TTL" envDefault:"30m"`
	ResetRequestLimit int           `env:"AUTHD_RESET_REQUEST_LIMIT" envDefault:"5"`

	Debug bool `env:"AUTHD_DEBUG" envDefault:"false"`
}

// loadConfig reads .env when present, then the process environment.
func loadConfig() (*serverConfig, error) {
	_ = godotenv.Load()

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
