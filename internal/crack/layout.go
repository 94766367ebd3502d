package crack

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/docproc/internal/common"
)

// LayoutCracker runs the Azure Document Intelligence layout model over REST
// and polls the long-running operation until it settles.
type LayoutCracker struct {
	cfg    common.LayoutConfig
	http   *http.Client
	logger *slog.Logger
}

func NewLayoutCracker(cfg common.LayoutConfig, logger *slog.Logger) *LayoutCracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-11-30"
	}
	if cfg.Model == "" {
		cfg.Model = "prebuilt-layout"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &LayoutCracker{cfg: cfg, http: &http.Client{}, logger: logger}
}

type analyzeOperation struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		Pages []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string `json:"content"`
			} `json:"lines"`
		} `json:"pages"`
	} `json:"analyzeResult"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *LayoutCracker) Crack(ctx context.Context, doc []byte) (Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.logger.Info("crack.layout.start", "model", c.cfg.Model, "bytes", len(doc))

	opURL, err := c.submit(ctx, doc)
	if err != nil {
		c.logger.Error("crack.layout.submit_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, fmt.Errorf("%w: %v", common.ErrCracking, err)
	}

	op, err := c.poll(ctx, opURL)
	if err != nil {
		c.logger.Error("crack.layout.poll_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, fmt.Errorf("%w: %v", common.ErrCracking, err)
	}

	var lines []string
	pages := 0
	if op.AnalyzeResult != nil {
		pages = len(op.AnalyzeResult.Pages)
		for _, p := range op.AnalyzeResult.Pages {
			for _, ln := range p.Lines {
				lines = append(lines, ln.Content)
			}
		}
	}
	if len(lines) == 0 {
		c.logger.Warn("crack.layout.no_lines", "pages", pages, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{Pages: pages, Method: "layout"}, fmt.Errorf("%w: no text lines in %d page(s)", common.ErrCracking, pages)
	}

	res := Result{
		Text:     joinLines(lines),
		Pages:    pages,
		Lines:    len(lines),
		Method:   "layout",
		Duration: time.Since(start),
	}
	c.logger.Info("crack.layout.ok", "pages", res.Pages, "lines", res.Lines, "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

func (c *LayoutCracker) submit(ctx context.Context, doc []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIVersion))

	body, err := json.Marshal(map[string]string{"base64Source": base64.StdEncoding.EncodeToString(doc)})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request: %w", err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("analyze status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", errors.New("analyze response has no Operation-Location")
	}
	return opURL, nil
}

func (c *LayoutCracker) poll(ctx context.Context, opURL string) (analyzeOperation, error) {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return analyzeOperation{}, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)

		resp, err := c.http.Do(req)
		if err != nil {
			return analyzeOperation{}, fmt.Errorf("poll operation: %w", err)
		}
		raw, readErr := io.ReadAll(resp.Body)
		c.closeBody(resp.Body)
		if readErr != nil {
			return analyzeOperation{}, fmt.Errorf("read operation: %w", readErr)
		}
		if resp.StatusCode/100 != 2 {
			return analyzeOperation{}, fmt.Errorf("operation status %d", resp.StatusCode)
		}

		var op analyzeOperation
		if err := json.Unmarshal(raw, &op); err != nil {
			return analyzeOperation{}, fmt.Errorf("decode operation: %w", err)
		}

		switch strings.ToLower(op.Status) {
		case "succeeded":
			return op, nil
		case "failed", "canceled":
			msg := op.Status
			if op.Error != nil {
				msg = op.Error.Code + ": " + op.Error.Message
			}
			return analyzeOperation{}, fmt.Errorf("analysis %s", msg)
		}

		wait := c.cfg.PollInterval
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
			wait = time.Duration(s) * time.Second
		}
		c.logger.Debug("crack.layout.pending", "status", op.Status, "attempt", attempt, "wait_ms", wait.Milliseconds())

		select {
		case <-ctx.Done():
			return analyzeOperation{}, fmt.Errorf("analysis did not finish in %s: %w", c.cfg.Timeout, ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (c *LayoutCracker) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warn("crack.layout.response_body_close_error", "error", err)
	}
}
