package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/app"
	"github.com/joseph-ayodele/docproc/internal/common"
)

type rootOptions struct {
	configFile string
	verbose    bool
	sinks      []string
	extractor  string
	cracker    string

	cfg    *common.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "docproc",
		Short:         "Extract structured invoice fields from documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file (overrides DOCPROC_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringSliceVar(&opts.sinks, "sink", nil, "output sinks, e.g. --sink csv --sink jsonl")
	cmd.PersistentFlags().StringVar(&opts.extractor, "extractor", "", "extractor variant")
	cmd.PersistentFlags().StringVar(&opts.cracker, "cracker", "", "cracker variant")

	cmd.AddCommand(
		newRunCmd(opts),
		newBatchCmd(opts),
		newWatchCmd(opts),
		newTemplateCmd(opts),
		newResultsCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() error {
	if o.configFile != "" {
		if err := os.Setenv("DOCPROC_CONFIG", o.configFile); err != nil {
			return err
		}
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	if len(o.sinks) > 0 {
		cfg.Sinks.Types = nil
		for _, s := range o.sinks {
			cfg.Sinks.Types = append(cfg.Sinks.Types, constants.CanonicalVariant(s))
		}
	}
	if o.extractor != "" {
		cfg.LLM.Type = constants.CanonicalVariant(o.extractor)
	}
	if o.cracker != "" {
		cfg.Cracker.Type = constants.CanonicalVariant(o.cracker)
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	o.cfg = cfg
	o.logger = app.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(o.logger)
	return nil
}

func (o *rootOptions) requireFileSource(cmdName string) error {
	if o.cfg.Source.Type != constants.SourceFile {
		return fmt.Errorf("%s reads local files; source %q is not supported", cmdName, o.cfg.Source.Type)
	}
	return nil
}

// build rooted at dir so local paths resolve against the file source.
func (o *rootOptions) build(ctx context.Context, dir string) (*app.App, error) {
	if o.cfg.Source.Type == constants.SourceFile {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		o.cfg.Source.Dir = abs
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	return app.Build(ctx, o.cfg, o.logger)
}
