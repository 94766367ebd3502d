package template

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/docproc/internal/common"
)

// InvokeStore reads templates through Dapr service invocation of the upload
// app's GET /template/{name} endpoint.
type InvokeStore struct {
	cfg    common.DaprConfig
	http   *http.Client
	logger *slog.Logger
}

func NewInvokeStore(cfg common.DaprConfig, timeout time.Duration, logger *slog.Logger) *InvokeStore {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &InvokeStore{cfg: cfg, http: &http.Client{Timeout: timeout}, logger: logger}
}

func (s *InvokeStore) Get(ctx context.Context, name string) ([]byte, error) {
	u := daprBase(s.cfg) + "/template/" + url.PathEscape(name)
	headers := map[string]string{"dapr-app-id": s.cfg.AppID}
	return daprGet(ctx, s.http, u, s.cfg.APIToken, headers, s.logger)
}

func (s *InvokeStore) Close() error { return nil }

// StateStore reads templates straight from a Dapr state store.
type StateStore struct {
	cfg    common.DaprConfig
	http   *http.Client
	logger *slog.Logger
}

func NewStateStore(cfg common.DaprConfig, timeout time.Duration, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &StateStore{cfg: cfg, http: &http.Client{Timeout: timeout}, logger: logger}
}

func (s *StateStore) Get(ctx context.Context, name string) ([]byte, error) {
	u := fmt.Sprintf("%s/v1.0/state/%s/%s", daprBase(s.cfg), url.PathEscape(s.cfg.StateStore), url.PathEscape(name))
	return daprGet(ctx, s.http, u, s.cfg.APIToken, nil, s.logger)
}

func (s *StateStore) Close() error { return nil }

// daprBase omits the sidecar port when an API token is set; token-authenticated
// endpoints are remote and addressed without one.
func daprBase(cfg common.DaprConfig) string {
	base := strings.TrimRight(cfg.Endpoint, "/")
	if cfg.APIToken == "" && cfg.Port != "" {
		base += ":" + cfg.Port
	}
	return base
}

func daprGet(ctx context.Context, client *http.Client, u, token string, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if token != "" {
		req.Header.Set("dapr-api-token", token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dapr request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("template.dapr.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dapr response: %w", err)
	}
	logger.Debug("template.dapr.response",
		"url", u,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return nil, common.ErrNotFound
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("dapr status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	case len(strings.TrimSpace(string(raw))) == 0:
		return nil, common.ErrNotFound
	}
	return raw, nil
}
