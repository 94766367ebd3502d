package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docproc/internal/repository"
)

type resultView struct {
	ID        string          `json:"id"`
	Template  string          `json:"template"`
	Details   json.RawMessage `json:"invoice_details"`
	CreatedAt time.Time       `json:"created_at"`
}

func newResultsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results <document-ref>",
		Short: "List extractions stored by the sql sink for one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sqlCfg := root.cfg.Sinks.SQL
			if sqlCfg.DSN == "" {
				return errors.New("SQL_DSN is not set")
			}
			db, err := repository.Open(ctx, repository.Config{Dialect: sqlCfg.Dialect, DSN: sqlCfg.DSN}, root.logger)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
				return err
			}

			rows, err := repository.NewResultRepository(db.Driver).ListByDocRef(ctx, args[0])
			if err != nil {
				return err
			}
			out := make([]resultView, 0, len(rows))
			for _, r := range rows {
				out = append(out, resultView{
					ID:        r.ID.String(),
					Template:  r.Template,
					Details:   json.RawMessage(r.Details),
					CreatedAt: r.CreatedAt,
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
