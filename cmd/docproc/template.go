package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docproc/internal/template"
)

type templateView struct {
	Name   string           `json:"name"`
	Static bool             `json:"static"`
	Fields []template.Field `json:"fields"`
	Schema map[string]any   `json:"schema,omitempty"`
}

func newTemplateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect extraction templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(template.StaticNames())
		},
	})

	var withSchema bool
	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Resolve a template and print its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := template.NewStore(ctx, root.cfg.Templates, root.cfg.Redis, root.logger)
			if err != nil {
				return err
			}
			res := template.NewResolver(store, root.logger)
			defer res.Close()

			t, err := res.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			view := templateView{Name: t.Name, Static: t.Static, Fields: t.Fields}
			if withSchema {
				view.Schema = t.Schema
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
	show.Flags().BoolVar(&withSchema, "schema", false, "include the JSON schema sent to the extractor")
	cmd.AddCommand(show)
	return cmd
}
