// Package provider builds the configured extractor variant.
package provider

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
	"github.com/joseph-ayodele/docproc/internal/llm/ollama"
	"github.com/joseph-ayodele/docproc/internal/llm/openai"
	"github.com/joseph-ayodele/docproc/internal/llm/vertex"
)

// New returns a SchemaExtractor over the completer named by cfg.Type.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (*llm.SchemaExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := NewCompleter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("llm.provider.ready", "provider", c.Name(), "timeout", cfg.Timeout)
	return llm.NewSchemaExtractor(c, cfg.Timeout, logger), nil
}

func NewCompleter(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch v := constants.CanonicalVariant(cfg.Type); v {
	case constants.ExtractorOpenAI:
		return openai.NewClient(openai.Config{
			Name:           constants.ExtractorOpenAI,
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.Model,
			AzureEndpoint:  cfg.OpenAI.Endpoint,
			APIVersion:     cfg.OpenAI.APIVersion,
			ResponseFormat: openai.FormatJSONSchema,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			Timeout:        cfg.Timeout,
		}, logger), nil
	case constants.ExtractorGroq:
		baseURL := cfg.Groq.BaseURL
		if baseURL == "" {
			baseURL = "https://api.groq.com/openai/v1"
		}
		return openai.NewClient(openai.Config{
			Name:           constants.ExtractorGroq,
			APIKey:         cfg.Groq.APIKey,
			BaseURL:        baseURL,
			Model:          cfg.Groq.Model,
			ResponseFormat: openai.FormatJSONObject,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			Timeout:        cfg.Timeout,
		}, logger), nil
	case constants.ExtractorOllama:
		return ollama.NewClient(ollama.Config{
			URL:         cfg.Ollama.URL,
			Model:       cfg.Ollama.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case constants.ExtractorVertex:
		return vertex.NewClient(ctx, vertex.Config{
			ProjectID:   cfg.Vertex.ProjectID,
			Region:      cfg.Vertex.Region,
			Model:       cfg.Vertex.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}, logger)
	default:
		return nil, common.UnsupportedVariant("extractor", v)
	}
}
