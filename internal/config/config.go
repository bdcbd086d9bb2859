package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// ErrMissingCredential indica que no hay API key para el servicio de completions.
// Es fatal: el proceso no debe aceptar turnos sin ella.
var ErrMissingCredential = errors.New("missing completion api key: set LLM_API_KEY or GROQ_API_KEY")

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string        `env:"HTTP_PORT" envDefault:"8080"`
	LLMAPIKey         string        `env:"LLM_API_KEY"`
	GroqAPIKey        string        `env:"GROQ_API_KEY"`
	LLMBaseURL        string        `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	Persona           string        `env:"PERSONA" envDefault:"companion"`
	PersonaModel      string        `env:"PERSONA_MODEL"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTLMinutes int           `env:"SESSION_TTL_MINUTES" envDefault:"1440"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	cfg.LLMAPIKey = strings.TrimSpace(cfg.LLMAPIKey)
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = strings.TrimSpace(cfg.GroqAPIKey)
	}
	if cfg.LLMAPIKey == "" {
		return nil, ErrMissingCredential
	}
	return &cfg, nil
}

func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
