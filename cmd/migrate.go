package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stanse/fec-pipeline/internal/fec"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply fec_data schema migrations",
	Long:  "Creates the fec_data schema and applies any pending migrations. Safe to run repeatedly; concurrent runs are serialized through an advisory lock.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := pipelinePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := fec.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate")
		}

		fmt.Println("Migrations up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
