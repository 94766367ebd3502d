package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docproc/internal/llm"
)

// Config for a local Ollama server.
type Config struct {
	URL         string // default http://localhost:11434
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client talks to Ollama's /api/chat with the schema as the output format.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

func (c *Client) Name() string { return "ollama" }

func (c *Client) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	body := map[string]any{
		"model":  c.cfg.Model,
		"stream": false,
		"format": p.WireSchema,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
		"messages": []map[string]any{
			{"role": "system", "content": p.System + "\n\n" + llm.SchemaInstruction(p.WireSchema)},
			{"role": "user", "content": p.User},
		},
	}

	raw, err := llm.SendJSON(ctx, c.http, strings.TrimRight(c.cfg.URL, "/")+"/api/chat", body, nil, c.logger)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Done  bool   `json:"done"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return strings.TrimSpace(out.Message.Content), nil
}
