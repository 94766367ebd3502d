package main

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/async"
	"github.com/joseph-ayodele/docproc/internal/ingest"
	"github.com/joseph-ayodele/docproc/internal/pipeline"
)

func newBatchCmd(root *rootOptions) *cobra.Command {
	var (
		templateName string
		workers      int
		skipHidden   bool
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Process every supported document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := root.requireFileSource(cmd.Name()); err != nil {
				return err
			}
			a, err := root.build(ctx, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			// Source.Dir is absolute after build, so scanned paths resolve under it
			paths, stats, err := ingest.ScanDir(root.cfg.Source.Dir, skipHidden)
			if err != nil {
				return err
			}
			a.Logger.Info("batch.scan.done", "dir", args[0], "scanned", stats.Scanned, "matched", stats.Matched)

			// the queue is sized to hold every file so Submit never rejects
			queue := async.NewProcessorQueue(a.Processor, a.Logger,
				async.WithWorkers(workers),
				async.WithQueueSize(len(paths)+1),
				async.WithProcessTimeout(root.cfg.Server.RunTimeout),
			)
			defer queue.Shutdown(ctx)

			var ok, failed atomic.Int64
			g, gctx := errgroup.WithContext(ctx)
			for _, p := range paths {
				p := p
				g.Go(func() error {
					run, err := queue.Submit(gctx, pipeline.Request{DocumentRef: p, TemplateName: templateName})
					if err != nil {
						failed.Add(1)
					} else {
						ok.Add(1)
					}
					return writeRun(cmd, run)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "processed=%d failed=%d\n", ok.Load(), failed.Load())
			if failed.Load() > 0 {
				return fmt.Errorf("%d of %d documents failed", failed.Load(), len(paths))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&templateName, "template", "t", constants.StaticInvoiceTemplate, "template name")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "concurrent documents")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "ignore dot files and directories")
	return cmd
}
