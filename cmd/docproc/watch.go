package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/async"
	"github.com/joseph-ayodele/docproc/internal/ingest"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		templateName string
		initialScan  bool
		debounce     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Process documents as they land in an inbox directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := root.requireFileSource(cmd.Name()); err != nil {
				return err
			}
			a, err := root.build(ctx, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			queue := async.NewProcessorQueue(a.Processor, a.Logger,
				async.WithWorkers(root.cfg.Server.Workers),
				async.WithQueueSize(root.cfg.Server.QueueSize),
				async.WithProcessTimeout(root.cfg.Server.RunTimeout),
			)
			defer queue.Shutdown(cmd.Context())

			inbox := ingest.NewInbox(queue, templateName, a.Logger)
			return inbox.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{root.cfg.Source.Dir},
				InitialScan: initialScan,
				SkipHidden:  true,
				Debounce:    debounce,
			})
		},
	}
	cmd.Flags().StringVarP(&templateName, "template", "t", constants.StaticInvoiceTemplate, "template name")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "enqueue files already present")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "coalesce bursts of file events")
	return cmd
}
