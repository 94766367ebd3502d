package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/template"
)

// SchemaExtractor implements Extractor on top of any Completer: it builds the
// schema and prompts, makes one completion call and decodes the reply strictly.
type SchemaExtractor struct {
	completer Completer
	timeout   time.Duration
	log       *slog.Logger
}

func NewSchemaExtractor(c Completer, timeout time.Duration, logger *slog.Logger) *SchemaExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchemaExtractor{completer: c, timeout: timeout, log: logger}
}

func (e *SchemaExtractor) Extract(ctx context.Context, tpl template.Template, text string) (Result, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	schema, err := BuildSchema(tpl)
	if err != nil {
		e.log.Error("llm.extract.schema_error", "req_id", rid, "template", tpl.Name, "error", err)
		return Result{}, fmt.Errorf("%w: %v", common.ErrExtraction, err)
	}
	prompt := Prompt{
		System:     BuildSystemPrompt(tpl),
		User:       BuildUserPrompt(text),
		SchemaName: schemaName(tpl.Name),
		Schema:     schema,
		WireSchema: WireSchema(schema),
	}

	e.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", e.completer.Name(),
		"template", tpl.Name,
		"static", tpl.Static,
		"fields", len(tpl.Fields),
		"text_len", len(text),
	)

	cctx, cancel := common.WithTimeout(ctx, e.timeout)
	defer cancel()
	reply, err := e.completer.Complete(cctx, prompt)
	if err != nil {
		e.log.Error("llm.extract.completion_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{}, fmt.Errorf("%w: %v", common.ErrExtraction, err)
	}

	res, err := DecodeReply(tpl, schema, reply)
	if err != nil {
		e.log.Error("llm.extract.decode_failed",
			"req_id", rid, "error", err, "reply_bytes", len(reply),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Result{}, err
	}

	e.log.Info("llm.extract.ok",
		"req_id", rid,
		"template", tpl.Name,
		"fields", res.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Close releases the completer's resources when it holds any.
func (e *SchemaExtractor) Close() error {
	if c, ok := e.completer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// schemaName derives a provider-safe schema identifier from a template name.
func schemaName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "extraction"
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return string(out)
}
