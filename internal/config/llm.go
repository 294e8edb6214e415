package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/datacom/pkg/log"
)

type LLMConfig struct {
	Model         string `env:"MODEL_ASSISTANT,notEmpty" envDefault:"tinyllama"`
	OllamaBaseURL string `env:"OLLAMA_BASE_URL,notEmpty" envDefault:"http://localhost:11434"`

	// Generation parameters, kept small for a CPU-only model
	MaxNewTokens int     `env:"MAX_NEW_TOKENS" envDefault:"100"`
	Temperature  float64 `env:"TEMPERATURE" envDefault:"0.3"`
	TopP         float64 `env:"TOP_P" envDefault:"0.8"`

	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"120s"`
	InferenceWorkers int64         `env:"INFERENCE_WORKERS" envDefault:"1"`
	MaxPromptTokens  int           `env:"MAX_PROMPT_TOKENS" envDefault:"2048"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	if c.InferenceWorkers < 1 {
		c.InferenceWorkers = 1
	}
	return c
}

func (c LLMConfig) GetModel() string {
	return c.Model
}

func (c LLMConfig) GetMaxNewTokens() int {
	return c.MaxNewTokens
}

func (c LLMConfig) GetTemperature() float64 {
	return c.Temperature
}

func (c LLMConfig) GetTopP() float64 {
	return c.TopP
}

func (c LLMConfig) GetInferenceTimeout() time.Duration {
	return c.InferenceTimeout
}
