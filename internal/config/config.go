// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/dukerupert/jotter/internal/llm"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	LLM      LLMConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" env-default:"5001"`
	StaticDir       string        `env:"STATIC_DIR" env-default:"web/static"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

type LLMConfig struct {
	APIKey string `env:"OPENAI_API_KEY"`
	// Older deployments provide the key as a GitHub token.
	GitHubToken string        `env:"GITHUB_TOKEN"`
	LegacyToken string        `env:"github_token"`
	BaseURL     string        `env:"OPENAI_API_BASE" env-default:"https://models.github.ai/inference"`
	Model       string        `env:"OPENAI_MODEL" env-default:"openai/gpt-4.1-mini"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" env-default:"15s"`
}

// Key returns the first configured API key.
func (c LLMConfig) Key() string {
	for _, k := range []string{c.APIKey, c.GitHubToken, c.LegacyToken} {
		if k != "" {
			return k
		}
	}
	return ""
}

// Client returns the gateway configuration.
func (c LLMConfig) Client() llm.Config {
	return llm.Config{
		APIKey:  c.Key(),
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	}
}

// Load reads envFile into the process environment, then parses the
// environment. An empty envFile means ".env", which may be absent.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	path := envFile
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if _, err := cfg.Database.ParsedBackend(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Usage describes every recognised variable.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
