package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "Browse recorded sync runs",
		Long: `Without arguments, list recent sync runs newest first. With a run
id, show that run including per-provider outcomes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if len(args) == 1 {
				run, err := apiClient.GetRun(ctx, args[0])
				if err != nil {
					return err
				}

				if getOutputFormat() != "table" {
					return printOutput(run)
				}

				fmt.Printf("Run %s  [%s .. %s]  %s\n", run.ID, run.WindowStart, run.WindowEnd, formatStatus(run.Status))
				fmt.Printf("Started %s, finished %s\n\n", run.StartedAt, run.FinishedAt)

				t := NewTable("PROVIDER", "STATUS", "FOUND", "STORED", "SKIPPED", "REMINDERS", "ERROR")
				for _, p := range run.Providers {
					t.AddRow(
						p.Provider,
						formatStatus(p.Status),
						strconv.Itoa(p.InvoicesFound),
						strconv.Itoa(p.DocumentsStored),
						strconv.Itoa(p.DocumentsSkipped),
						strconv.Itoa(p.RemindersCreated),
						p.ErrorMessage,
					)
				}
				t.Render()
				return nil
			}

			runs, err := apiClient.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(runs)
			}

			t := NewTable("ID", "WINDOW", "STATUS", "STARTED")
			for _, r := range runs {
				t.AddRow(
					r.ID,
					r.WindowStart+" .. "+r.WindowEnd,
					formatStatus(r.Status),
					r.StartedAt,
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")

	return cmd
}
