package crack

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
)

// Cracker turns raw document bytes into plain text.
type Cracker interface {
	Crack(ctx context.Context, doc []byte) (Result, error)
}

// Result is the text a cracker produced. Text holds lines joined by "\n" in
// reading order: page order, then line order within a page.
type Result struct {
	Text     string
	Pages    int
	Lines    int
	Method   string // "layout" | "tika" | "pdf-text" | "pdf-ocr" | "image-ocr"
	Duration time.Duration
	Warnings []string
}

// Empty reports whether the cracker produced no usable text.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// New builds the configured cracker variant.
func New(cfg common.CrackerConfig, logger *slog.Logger) (Cracker, error) {
	switch constants.CanonicalVariant(cfg.Type) {
	case constants.CrackerLayout:
		return NewLayoutCracker(cfg.Layout, logger), nil
	case constants.CrackerTika:
		return NewTikaCracker(cfg.Tika, logger), nil
	case constants.CrackerLocal:
		return NewLocalCracker(cfg.Local, logger), nil
	default:
		return nil, common.UnsupportedVariant("cracker", cfg.Type)
	}
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
