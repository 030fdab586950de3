package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendServer = "server"
	BackendOpenAI = "openai"
)

type Config struct {
	Backend        string        `env:"BACKEND"         envDefault:"server"`
	ModelName      string        `env:"MODEL_NAME"      envDefault:"google/flan-t5-base"`
	ServerURL      string        `env:"SERVER_URL"      envDefault:"http://localhost:8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"2m"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	TelegramToken  string        `env:"TELEGRAM_TOKEN"`
	AllowedUsers   []int64       `env:"ALLOWED_USERS"`
	DBPath         string        `env:"DB_PATH"         envDefault:"dialoguesum.sqlite"`
	CacheSize      int           `env:"CACHE_SIZE"      envDefault:"256"`
	CacheTTL       time.Duration `env:"CACHE_TTL"       envDefault:"1h"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Backend != BackendServer && cfg.Backend != BackendOpenAI {
		return Config{}, fmt.Errorf("unknown BACKEND %q", cfg.Backend)
	}

	return cfg, nil
}
