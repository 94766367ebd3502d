package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/joseph-ayodele/docproc/internal/llm"
)

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements llm.Completer with one chat/completions call.
func (c *Client) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	messages := []map[string]any{
		{"role": "system", "content": p.System},
		{"role": "user", "content": p.User},
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages":    messages,
	}
	switch c.cfg.ResponseFormat {
	case FormatJSONObject:
		body["response_format"] = map[string]any{"type": "json_object"}
		messages = append(messages, map[string]any{"role": "system", "content": llm.SchemaInstruction(p.WireSchema)})
		body["messages"] = messages
	default:
		body["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   p.SchemaName,
				"strict": true,
				"schema": p.WireSchema,
			},
		}
	}

	endpoint, headers := c.target()
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.cfg.Name, err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.cfg.Name, err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", msg.Refusal)
	}
	if cc.Choices[0].FinishReason == "length" {
		c.logger.Warn("llm.openai.truncated", "model", c.cfg.Model, "max_tokens", c.cfg.MaxTokens)
	}
	return strings.TrimSpace(msg.Content), nil
}

func (c *Client) target() (string, map[string]string) {
	if c.azure() {
		u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			strings.TrimRight(c.cfg.AzureEndpoint, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIVersion))
		return u, map[string]string{"api-key": c.cfg.APIKey}
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
