package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the client settings read from the environment.
type Config struct {
	APIURL    string `env:"API_URL" envDefault:"http://localhost:5000"`
	SocketURL string `env:"SOCKET_URL" envDefault:"ws://localhost:5000/ws"`

	ControlAddr string `env:"CONTROL_ADDR" envDefault:"127.0.0.1:7070"`
	DebugRoutes bool   `env:"DEBUG_ROUTES" envDefault:"false"`

	ProfileDB string `env:"PROFILE_DB" envDefault:"chat-client.db"`

	HTTPTimeout         time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	TypingTimeout       time.Duration `env:"TYPING_TIMEOUT" envDefault:"3s"`
	RemoteTypingTimeout time.Duration `env:"REMOTE_TYPING_TIMEOUT" envDefault:"0s"`
	NoticeDuration      time.Duration `env:"NOTICE_DURATION" envDefault:"5s"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"chat-client.events"`
	Environment  string `env:"ENVIRONMENT" envDefault:"local"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"chat-client"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the client configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.TypingTimeout <= 0 {
		return Config{}, fmt.Errorf("parse env: TYPING_TIMEOUT must be positive, got %s", cfg.TypingTimeout)
	}
	return cfg, nil
}
