package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/datacom/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"DATACOM_RUNTIME_PATH" envDefault:".datacom"`

	// Transport Flags
	EnableHTTP     bool `env:"ENABLE_HTTP" envDefault:"true"`
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`

	// Context Management
	MaxContextMessages int    `env:"MAX_CONTEXT_MESSAGES" envDefault:"4"`
	PersonaPromptPath  string `env:"PERSONA_PROMPT_PATH"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = resolveRuntimePath(c.RuntimePath)
	if c.MaxContextMessages < 0 {
		c.MaxContextMessages = 0
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "datacom.db")
}

func (c AppConfig) GetEnvPath() string {
	return filepath.Join(c.RuntimePath, ".env")
}

func (c AppConfig) GetMaxContextMessages() int {
	return c.MaxContextMessages
}

func (c AppConfig) GetPersonaPromptPath() string {
	return c.PersonaPromptPath
}

func (c AppConfig) IsHTTPEnabled() bool {
	return c.EnableHTTP
}

func (c AppConfig) IsTelegramEnabled() bool {
	return c.EnableTelegram
}
