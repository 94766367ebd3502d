package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/pipeline"
	"github.com/joseph-ayodele/docproc/internal/template"
)

type runOutput struct {
	Document    string          `json:"document"`
	Template    string          `json:"template"`
	State       string          `json:"state"`
	Result      json.RawMessage `json:"result,omitempty"`
	FailedSinks []string        `json:"failed_sinks,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// fixedResolver serves one template read from disk.
type fixedResolver struct{ t template.Template }

func (f fixedResolver) Resolve(context.Context, string) (template.Template, error) {
	return f.t.Clone(), nil
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		templateName string
		templateFile string
	)
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Process a single document and print the extracted fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			a, err := root.build(ctx, filepath.Dir(path))
			if err != nil {
				return err
			}
			defer a.Close()

			proc := a.Processor
			if templateFile != "" {
				blob, err := os.ReadFile(templateFile)
				if err != nil {
					return fmt.Errorf("read template file: %w", err)
				}
				t, err := template.ParseStored(templateName, blob)
				if err != nil {
					return err
				}
				proc = pipeline.NewProcessor(a.Source, a.Cracker, fixedResolver{t}, a.Extractor, a.Dispatcher, a.Logger)
			}

			ref := path
			if root.cfg.Source.Type != constants.SourceFile {
				ref = args[0]
			}
			run, perr := proc.Process(ctx, pipeline.Request{DocumentRef: ref, TemplateName: templateName})
			if err := writeRun(cmd, run); err != nil {
				return err
			}
			return perr
		},
	}
	cmd.Flags().StringVarP(&templateName, "template", "t", constants.StaticInvoiceTemplate, "template name")
	cmd.Flags().StringVar(&templateFile, "template-file", "", "read the template from a local JSON file instead of the store")
	return cmd
}

func writeRun(cmd *cobra.Command, run pipeline.Run) error {
	out := runOutput{
		Document:    run.Request.DocumentRef,
		Template:    run.Request.TemplateName,
		State:       string(run.State),
		FailedSinks: run.FailedSinks(),
	}
	if !run.Result.Empty() {
		b, err := json.Marshal(run.Result)
		if err != nil {
			return err
		}
		out.Result = b
	}
	if run.Err != nil {
		out.Error = run.Err.Error()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
