package crack

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-tika/tika"

	"github.com/joseph-ayodele/docproc/internal/common"
)

// TikaCracker sends documents to an Apache Tika server. Failures are soft:
// the cracker logs them and returns an empty Result with a nil error, and the
// caller decides what an empty result means.
type TikaCracker struct {
	client *tika.Client
	logger *slog.Logger
}

func NewTikaCracker(cfg common.TikaConfig, logger *slog.Logger) *TikaCracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:9998"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: cfg.Timeout, Transport: plainText{next: http.DefaultTransport}}
	return &TikaCracker{
		client: tika.NewClient(httpClient, strings.TrimRight(cfg.URL, "/")),
		logger: logger,
	}
}

func (c *TikaCracker) Crack(ctx context.Context, doc []byte) (Result, error) {
	start := time.Now()
	text, err := c.client.Parse(ctx, bytes.NewReader(doc))
	if err != nil {
		c.logger.Error("crack.tika.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{Method: "tika"}, nil
	}

	lines := splitNonEmpty(text)
	res := Result{
		Text:     joinLines(lines),
		Pages:    1 + strings.Count(text, "\f"),
		Lines:    len(lines),
		Method:   "tika",
		Duration: time.Since(start),
	}
	c.logger.Info("crack.tika.ok", "lines", res.Lines, "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

// plainText asks Tika for text/plain instead of the default XHTML.
type plainText struct {
	next http.RoundTripper
}

func (t plainText) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept", "text/plain")
	}
	return t.next.RoundTrip(req)
}

// splitNonEmpty drops blank lines and page breaks; Tika pads its output with both.
func splitNonEmpty(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(strings.ReplaceAll(ln, "\f", ""))
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
