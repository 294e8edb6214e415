package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/datacom/internal/core"
)

// StatusCommand reports the model and its load state
type StatusCommand struct {
	model     core.ModelStatus
	cfg       core.GenerationConfig
	formatter *ResponseFormatter
}

func NewStatusCommand(model core.ModelStatus, cfg core.GenerationConfig) *StatusCommand {
	return &StatusCommand{
		model:     model,
		cfg:       cfg,
		formatter: NewResponseFormatter(),
	}
}

func (c *StatusCommand) Name() string {
	return "status"
}

func (c *StatusCommand) Description() string {
	return "show the model and its state"
}

func (c *StatusCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	state := "not_loaded"
	if c.model.IsReady() {
		state = "ready"
	}

	conversation := "none"
	if sessionID != "" {
		conversation = sessionID
	}

	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("%s v%s", core.AppName, core.AppVersion)),
		c.formatter.Label("Model", c.cfg.GetModel()),
		c.formatter.Label("State", state),
		c.formatter.Label("Max new tokens", fmt.Sprint(c.cfg.GetMaxNewTokens())),
		c.formatter.Label("Temperature", fmt.Sprint(c.cfg.GetTemperature())),
		c.formatter.Label("Top-p", fmt.Sprint(c.cfg.GetTopP())),
		c.formatter.Label("Timeout", c.cfg.GetInferenceTimeout().String()),
		c.formatter.Label("Conversation", conversation),
	), nil
}
