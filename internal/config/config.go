package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env      string `env:"APP_ENV" env-default:"local"`
	HTTPPort string `env:"HTTP_PORT" env-default:"8081"`
	GRPCPort string `env:"GRPC_PORT" env-default:"9090"`

	MongoURI          string `env:"MONGO_DETAILS" env-required:"true"`
	MongoDatabase     string `env:"MONGO_DATABASE" env-default:"vodex"`
	ItemsCollection   string `env:"ITEMS_COLLECTION" env-default:"items"`
	ClockInCollection string `env:"CLOCKIN_COLLECTION" env-default:"clockin"`

	RedisAddr   string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	DatabaseURL string `env:"DATABASE_URL"`

	QueueBackend string `env:"QUEUE_BACKEND" env-default:"redis"`
	QueueKey     string `env:"QUEUE_KEY" env-default:"vodex:record-events"`

	RateLimitPerMin  int    `env:"RATE_LIMIT_PER_MIN" env-default:"120"`
	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" env-default:"memory"`

	StoreTimeout    time.Duration `env:"STORE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (App, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return App{}, fmt.Errorf("%s: %w", op, err)
	}

	var cfg App
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return App{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

// MustLoad is Load for process entrypoints.
func MustLoad() App {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Production reports whether the app runs with release settings.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}
