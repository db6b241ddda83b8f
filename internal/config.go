package internal

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

type Config struct {
	StoreBackend     string `env:"STORE_BACKEND,default=badger"`
	BadgerFilepath   string `env:"BADGER_FILEPATH,default=./data/messages"`
	LogLevel         string `env:"LOG_LEVEL,default=INFO"`
	MaxContentLength int    `env:"MAX_CONTENT_LENGTH,default=4000"`
	DebugPort        int    `env:"DEBUG_PORT,default=8090"`
}

// LoadConfig reads an optional .env file then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	config.StoreBackend = strings.ToLower(strings.TrimSpace(config.StoreBackend))
	if config.MaxContentLength < 0 {
		return Config{}, fmt.Errorf("MAX_CONTENT_LENGTH must not be negative, got %d", config.MaxContentLength)
	}
	return config, nil
}
