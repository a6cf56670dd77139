package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	GatewayConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsDev() bool
}

type mainConfig struct {
	*EnvVars
}

// New loads an optional .env file, parses the environment and validates the result.
func New() (Config, error) {
	_ = godotenv.Load()

	vars := &EnvVars{}
	if err := env.Parse(vars); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return fromVars(vars)
}

// FromEnvironment parses the given key/value pairs instead of the process environment.
func FromEnvironment(environment map[string]string) (Config, error) {
	vars := &EnvVars{}
	if err := env.ParseWithOptions(vars, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return fromVars(vars)
}

func fromVars(vars *EnvVars) (Config, error) {
	if err := validator.New().Struct(vars); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return mainConfig{EnvVars: vars}, nil
}
