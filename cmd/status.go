package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stanse/fec-pipeline/internal/fec"
	"github.com/stanse/fec-pipeline/internal/fecstore"
	"github.com/stanse/fec-pipeline/internal/resilience"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ingest sync log",
	Long: `Displays the sync history for all FEC bulk datasets.

Use --dead-letters to list consolidation records that failed and were
parked in the dead-letter table instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := pipelinePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if showDLQ, _ := cmd.Flags().GetBool("dead-letters"); showDLQ {
			entries, err := fecstore.NewStore(pool).ListDeadLetters(ctx, resilience.DLQFilter{Limit: 100})
			if err != nil {
				return eris.Wrap(err, "status: dead letters")
			}
			if len(entries) == 0 {
				fmt.Println("No dead letters.")
				return nil
			}
			formatDeadLetters(os.Stdout, entries)
			return nil
		}

		sl := fec.NewSyncLog(pool)
		entries, err := sl.ListAll(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if len(entries) == 0 {
			zap.L().Info("no sync entries found, run 'fec ingest' to load datasets")
			return nil
		}

		formatStatusEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("dead-letters", false, "list failed consolidation records instead of the sync log")
	rootCmd.AddCommand(statusCmd)
}

// formatDeadLetters writes a tabular view of dead-letter entries to w.
func formatDeadLetters(out io.Writer, entries []resilience.DLQEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKEY\tSTAGE\tTYPE\tRETRIES\tNEXT RETRY\tERROR")
	_, _ = fmt.Fprintln(w, "--\t---\t-----\t----\t-------\t----------\t-----")

	for _, e := range entries {
		nextRetry := "-"
		if e.CanRetry() && !e.NextRetryAt.IsZero() {
			nextRetry = e.NextRetryAt.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.ID,
			e.DocKey,
			e.Stage,
			e.ErrorType,
			e.RetryCount,
			e.MaxRetries,
			nextRetry,
			truncate(e.Error, 60),
		)
	}
	_ = w.Flush()
}

// formatStatusEntries writes a tabular representation of sync entries to w.
func formatStatusEntries(out io.Writer, entries []fec.SyncEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRUN\tDATASET\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t---\t-------\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			d := e.CompletedAt.Sub(e.StartedAt).Round(time.Second)
			dur = d.String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			shortRunID(e.RunID.String()),
			e.Dataset,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsSynced,
			errMsg,
		)
	}
	_ = w.Flush()
}

func shortRunID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
