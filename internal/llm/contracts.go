package llm

import (
	"context"

	"github.com/joseph-ayodele/docproc/internal/template"
)

// Extractor turns cracked text into the fields a template declares.
type Extractor interface {
	Extract(ctx context.Context, tpl template.Template, text string) (Result, error)
}

// Prompt is one structured-completion request.
type Prompt struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any // full schema, used for local validation
	WireSchema map[string]any // schema sent to the provider
}

// Completer sends a Prompt to a model backend and returns the raw reply text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Name() string
}
