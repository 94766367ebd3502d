package openai

import (
	"log/slog"
	"net/http"
	"time"
)

// Response format modes.
const (
	FormatJSONSchema = "json_schema" // native structured output
	FormatJSONObject = "json_object" // JSON mode; schema goes in the prompt
)

// Config for the chat-completions client. Setting both AzureEndpoint and
// APIVersion switches to Azure OpenAI addressing, where Model names the deployment.
type Config struct {
	Name           string
	APIKey         string
	BaseURL        string // default https://api.openai.com/v1
	Model          string
	AzureEndpoint  string
	APIVersion     string
	ResponseFormat string
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = FormatJSONSchema
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) azure() bool {
	return c.cfg.AzureEndpoint != "" && c.cfg.APIVersion != ""
}
