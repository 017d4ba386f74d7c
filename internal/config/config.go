package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/nguyentranbao-ct/agent-console/internal/kafka"
	"github.com/nguyentranbao-ct/agent-console/internal/llm"
	"github.com/nguyentranbao-ct/agent-console/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/agent-console/internal/usage"
	"github.com/nguyentranbao-ct/agent-console/internal/usecase"
	"github.com/nguyentranbao-ct/agent-console/pkg/logger"
)

type Config struct {
	Server   ServerConfig       `envPrefix:"SERVER_"`
	Database DatabaseConfig     `envPrefix:"DATABASE_"`
	Auth     usecase.AuthConfig `envPrefix:"AUTH_"`
	Crypto   CryptoConfig       `envPrefix:"CRYPTO_"`
	Kafka    kafka.Config       `envPrefix:"KAFKA_"`
	Redis    usage.Config       `envPrefix:"REDIS_"`
	LLM      llm.Config         `envPrefix:"LLM_"`
	Log      logger.Config      `envPrefix:"LOG_"`
}

type ServerConfig struct {
	Addr         string `env:"ADDR" envDefault:":8080"`
	AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"^https?://localhost(:[0-9]+)?$"`
	Pprof        bool   `env:"PPROF_ENABLED" envDefault:"false"`
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"mongo"`
	mongodb.Config
}

type CryptoConfig struct {
	// EncryptionKey seals API keys at rest: base64 of 32 bytes.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	switch cfg.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}
	return cfg
}
