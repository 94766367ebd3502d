package crack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
)

// minTextLayerRunes is the amount of text below which a PDF is treated as scanned.
const minTextLayerRunes = 16

// LocalCracker shells out to poppler and tesseract on the local machine.
type LocalCracker struct {
	cfg    common.LocalOCRConfig
	runner Runner
	logger *slog.Logger
}

func NewLocalCracker(cfg common.LocalOCRConfig, logger *slog.Logger) *LocalCracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &LocalCracker{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

func (c *LocalCracker) Crack(ctx context.Context, doc []byte) (Result, error) {
	start := time.Now()
	format := constants.SniffFormat(doc)
	if format == "" {
		c.logger.Error("crack.local.unsupported_format", "bytes", len(doc))
		return Result{}, fmt.Errorf("%w: unrecognised document format", common.ErrCracking)
	}

	tmpDir, err := os.MkdirTemp("", "docproc-crack-*")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrCracking, err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			c.logger.Warn("crack.local.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	name := "document.pdf"
	if format == constants.IMAGE {
		name = "document.img"
	}
	path := filepath.Join(tmpDir, name)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrCracking, err)
	}

	var res Result
	switch format {
	case constants.PDF:
		res, err = c.crackPDF(ctx, path, tmpDir)
	default:
		res, err = c.crackImage(ctx, path)
	}
	res.Duration = time.Since(start)
	if err != nil {
		c.logger.Error("crack.local.failed", "method", res.Method, "error", err, "elapsed_ms", res.Duration.Milliseconds())
		return res, fmt.Errorf("%w: %v", common.ErrCracking, err)
	}
	if res.Empty() {
		c.logger.Warn("crack.local.no_lines", "method", res.Method, "pages", res.Pages)
		return res, fmt.Errorf("%w: no text recognised", common.ErrCracking)
	}
	c.logger.Info("crack.local.ok",
		"method", res.Method,
		"pages", res.Pages,
		"lines", res.Lines,
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (c *LocalCracker) crackPDF(ctx context.Context, path, tmpDir string) (Result, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := c.runner.Run(ctx, c.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err == nil {
		text := string(out)
		lines := normalizeOCR(text)
		if len([]rune(strings.Join(lines, ""))) >= minTextLayerRunes {
			return Result{
				Text:   joinLines(lines),
				Pages:  1 + strings.Count(strings.TrimRight(text, "\f"), "\f"),
				Lines:  len(lines),
				Method: "pdf-text",
			}, nil
		}
	}

	warns := []string{}
	if err != nil {
		warns = append(warns, "pdftotext: "+strings.TrimSpace(string(errb)))
	} else {
		warns = append(warns, "pdf has no text layer; falling back to OCR")
	}
	res, ocrErr := c.pdfToOCR(ctx, path, tmpDir)
	res.Warnings = append(warns, res.Warnings...)
	return res, ocrErr
}

func (c *LocalCracker) pdfToOCR(ctx context.Context, path, tmpDir string) (Result, error) {
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := c.runner.Run(ctx, c.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", c.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return Result{Method: "pdf-ocr", Warnings: []string{string(errb)}}, fmt.Errorf("pdftoppm: %w", err)
	}

	// prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if c.cfg.MaxPages > 0 && len(matches) > c.cfg.MaxPages {
		matches = matches[:c.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{Method: "pdf-ocr"}, fmt.Errorf("no pages rendered")
	}

	var lines, warns []string
	for _, img := range matches {
		txt, err := c.tesseract(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		lines = append(lines, normalizeOCR(txt)...)
	}
	return Result{
		Text:     joinLines(lines),
		Pages:    len(matches),
		Lines:    len(lines),
		Method:   "pdf-ocr",
		Warnings: warns,
	}, nil
}

func (c *LocalCracker) crackImage(ctx context.Context, path string) (Result, error) {
	txt, err := c.tesseract(ctx, path)
	if err != nil {
		return Result{Method: "image-ocr"}, err
	}
	lines := normalizeOCR(txt)
	return Result{Text: joinLines(lines), Pages: 1, Lines: len(lines), Method: "image-ocr"}, nil
}

func (c *LocalCracker) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", c.cfg.TesseractLang}
	if c.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.cfg.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := c.runner.Run(ctx, c.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return string(out), nil
}
