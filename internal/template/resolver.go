package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docproc/internal/common"
)

// Store fetches raw template blobs by name. Implementations return an error
// wrapping common.ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// Resolver maps a template name to a Template, preferring the static registry.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns a copy of the named template. Missing keys and store
// failures both wrap common.ErrTemplateNotFound; a stored template with an
// unknown type tag wraps common.ErrInvalidTemplate.
func (r *Resolver) Resolve(ctx context.Context, name string) (Template, error) {
	start := time.Now()
	name = strings.TrimSpace(name)
	if name == "" {
		return Template{}, fmt.Errorf("%w: empty template name", common.ErrTemplateNotFound)
	}

	if t, ok := Static(name); ok {
		r.logger.Info("template.resolve.static", "template", name, "fields", len(t.Fields))
		return t, nil
	}
	if r.store == nil {
		return Template{}, fmt.Errorf("%w: %s: no template store configured", common.ErrTemplateNotFound, name)
	}

	blob, err := r.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			r.logger.Warn("template.resolve.missing", "template", name, "elapsed_ms", time.Since(start).Milliseconds())
		} else {
			r.logger.Error("template.resolve.store_error", "template", name, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		}
		return Template{}, fmt.Errorf("%w: %s: %v", common.ErrTemplateNotFound, name, err)
	}

	t, err := ParseStored(name, blob)
	if err != nil {
		r.logger.Error("template.resolve.invalid", "template", name, "error", err)
		return Template{}, err
	}
	r.logger.Info("template.resolve.ok",
		"template", name,
		"fields", len(t.Fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return t, nil
}

func (r *Resolver) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
