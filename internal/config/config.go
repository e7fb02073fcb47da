package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	Store       string     `env:"STORE" envDefault:"sqlite"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/leadercheck.db"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFile     string     `env:"LOG_FILE"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	CORSOrigins []string   `env:"CORS_ORIGINS" envDefault:"*"`

	QuestionBank string `env:"QUESTION_BANK"`

	DBBusyTimeout time.Duration `env:"DB_BUSY_TIMEOUT" envDefault:"5s"`
	DBMaxConns    int           `env:"DB_MAX_CONNS"`

	SubmitWorkers int           `env:"SUBMIT_WORKERS" envDefault:"2"`
	SubmitQueue   int           `env:"SUBMIT_QUEUE" envDefault:"64"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	RateLimit     float64       `env:"RATE_LIMIT" envDefault:"5"`
	RateBurst     int           `env:"RATE_BURST" envDefault:"10"`

	Webhook Webhook `envPrefix:"WEBHOOK_"`
	Redis   Redis   `envPrefix:"REDIS_"`
	S3      S3      `envPrefix:"S3_"`
}

// Webhook receives a JSON copy of every stored submission when URL is set.
type Webhook struct {
	URL     string        `env:"URL"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// Redis publishes stored submissions on Channel when URL is set.
type Redis struct {
	URL     string `env:"URL"`
	Channel string `env:"CHANNEL" envDefault:"assessments"`
}

// S3 archives exported reports when Endpoint is set.
type S3 struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"assessments"`
	Region    string `env:"REGION"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Store != StoreSQLite && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("STORE must be sqlite or memory, got %q", cfg.Store)
	}
	if cfg.SubmitWorkers < 1 {
		return nil, fmt.Errorf("SUBMIT_WORKERS must be at least 1")
	}
	return &cfg, nil
}
