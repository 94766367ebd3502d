// Package app assembles the configured components into a pipeline.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/crack"
	"github.com/joseph-ayodele/docproc/internal/llm"
	"github.com/joseph-ayodele/docproc/internal/llm/provider"
	"github.com/joseph-ayodele/docproc/internal/pipeline"
	"github.com/joseph-ayodele/docproc/internal/sink"
	"github.com/joseph-ayodele/docproc/internal/source"
	"github.com/joseph-ayodele/docproc/internal/template"
)

// App holds every long-lived component. Close releases them in reverse order.
type App struct {
	Config     *common.Config
	Source     source.Source
	Cracker    crack.Cracker
	Resolver   *template.Resolver
	Extractor  *llm.SchemaExtractor
	Dispatcher *sink.Dispatcher
	Processor  *pipeline.Processor
	Logger     *slog.Logger

	closers []func() error
}

// Build resolves every configured variant once. Any unknown variant name or
// failed client setup aborts startup.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	src, err := source.New(ctx, cfg.Source, logger)
	if err != nil {
		return nil, a.abort(err)
	}
	a.Source = src
	a.closers = append(a.closers, src.Close)

	a.Cracker, err = crack.New(cfg.Cracker, logger)
	if err != nil {
		return nil, a.abort(err)
	}

	store, err := template.NewStore(ctx, cfg.Templates, cfg.Redis, logger)
	if err != nil {
		return nil, a.abort(err)
	}
	a.Resolver = template.NewResolver(store, logger)
	a.closers = append(a.closers, a.Resolver.Close)

	a.Extractor, err = provider.New(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, a.abort(err)
	}
	a.closers = append(a.closers, a.Extractor.Close)

	sinks, err := sink.New(ctx, cfg.Sinks, cfg.Redis, logger)
	if err != nil {
		return nil, a.abort(err)
	}
	a.Dispatcher = sink.NewDispatcher(sinks, cfg.Sinks.Timeout, logger)
	a.closers = append(a.closers, a.Dispatcher.Close)

	a.Processor = pipeline.NewProcessor(a.Source, a.Cracker, a.Resolver, a.Extractor, a.Dispatcher, logger)
	logger.Info("app.ready",
		"source", cfg.Source.Type,
		"cracker", cfg.Cracker.Type,
		"template_store", cfg.Templates.Store,
		"extractor", cfg.LLM.Type,
		"sinks", a.Dispatcher.Names(),
	)
	return a, nil
}

func (a *App) abort(err error) error {
	if cerr := a.Close(); cerr != nil {
		a.Logger.Warn("app.abort.close_error", "error", cerr)
	}
	return err
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the process logger from LOG_LEVEL / LOG_FORMAT.
func NewLogger(cfg common.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
