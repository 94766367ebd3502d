package source

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
)

// Source returns the raw bytes behind a document reference.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Close() error
}

// New builds the configured document source.
func New(ctx context.Context, cfg common.SourceConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Type {
	case constants.SourceFile, "":
		return NewFileSource(cfg.Dir, logger), nil
	case constants.SourceGCS:
		return NewGCSSource(ctx, cfg.Bucket, logger)
	default:
		return nil, common.UnsupportedVariant("source", cfg.Type)
	}
}
