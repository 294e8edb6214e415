package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaGenerator runs prompts against a model served by a local Ollama.
type OllamaGenerator struct {
	llm llms.Model
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithMaxTokens(cfg.MaxNewTokens),
		llms.WithTemperature(cfg.Temperature),
		llms.WithTopP(cfg.TopP),
	)
}

// NewOllamaLoader returns a Loader that checks the model is pulled on the
// server before building the client.
func NewOllamaLoader(baseURL, model string) Loader {
	baseURL = strings.TrimRight(baseURL, "/")

	return func(ctx context.Context) (Generator, error) {
		tags, err := OllamaModels(ctx, baseURL)
		if err != nil {
			return nil, err
		}

		if !hasModel(tags, model) {
			return nil, fmt.Errorf("model %q is not available on %s", model, baseURL)
		}

		client, err := ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(baseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}

		return &OllamaGenerator{llm: client}, nil
	}
}

// OllamaModels lists the models pulled on the server at baseURL.
func OllamaModels(ctx context.Context, baseURL string) ([]string, error) {
	type ollamaTag struct {
		Name string `json:"name"`
	}
	type ollamaResponse struct {
		Models []ollamaTag `json:"models"`
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ollama tags: %w", err)
	}

	names := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// hasModel matches a bare model name against its ":latest" tag as Ollama does.
func hasModel(tags []string, model string) bool {
	for _, tag := range tags {
		if tag == model {
			return true
		}
		if !strings.Contains(model, ":") && tag == model+":latest" {
			return true
		}
	}
	return false
}
