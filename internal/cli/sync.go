package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bollettalabs/bolletta-sync/internal/app"
	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/syncer"
	"github.com/bollettalabs/bolletta-sync/pkg/client"
)

func newSyncCmd() *cobra.Command {
	var (
		providers []string
		start     string
		end       string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync pass across utility portals",
		Long: `Run a sync pass: authenticate against each selected portal, list
invoices in the window, store the documents and schedule payment
reminders. Without flags every configured provider is synced over the
default trailing window.

The pass runs in this process by default; --server sends it to a
running bolletta-sync API instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				report *client.Report
				err    error
			)
			if serverURL != "" {
				report, err = apiClient.TriggerSync(context.Background(), client.SyncRequest{
					Providers: providers,
					Start:     start,
					End:       end,
				})
			} else {
				report, err = runLocalSync(providers, start, end)
			}
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(report)
			}

			fmt.Printf("Run %s  [%s .. %s]  %s\n\n", report.ID, report.Start, report.End, formatStatus(report.Status))

			t := NewTable("PROVIDER", "STATUS", "FOUND", "STORED", "SKIPPED", "REMINDERS", "ERROR")
			for _, o := range report.Outcomes {
				errMsg := o.ErrorMessage
				if errMsg == "" && len(o.InvoiceErrors) > 0 {
					errMsg = strings.Join(o.InvoiceErrors, "; ")
				}
				t.AddRow(
					o.Provider,
					formatStatus(o.Status),
					strconv.Itoa(o.InvoicesFound),
					strconv.Itoa(o.DocumentsStored),
					strconv.Itoa(o.DocumentsSkipped),
					strconv.Itoa(o.RemindersCreated),
					errMsg,
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&providers, "provider", "p", nil, "provider to sync (repeatable, default all)")
	cmd.Flags().StringVar(&start, "start", "", "window start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "window end date (YYYY-MM-DD)")

	return cmd
}

// runLocalSync builds the engine in-process and runs one pass
func runLocalSync(providers []string, start, end string) (*client.Report, error) {
	req := syncer.Request{Providers: providers}
	if start != "" {
		d, err := invoice.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("invalid --start date %q: %w", start, err)
		}
		req.Start = d
	}
	if end != "" {
		d, err := invoice.ParseDate(end)
		if err != nil {
			return nil, fmt.Errorf("invalid --end date %q: %w", end, err)
		}
		req.End = d
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	report, err := a.Engine.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return toClientReport(report), nil
}

func toClientReport(r *syncer.Report) *client.Report {
	out := &client.Report{
		ID:         r.ID,
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Start:      r.Start,
		End:        r.End,
		Status:     r.Status,
	}
	for _, o := range r.Outcomes {
		out.Outcomes = append(out.Outcomes, client.Outcome{
			Provider:         o.Provider,
			Status:           o.Status,
			ErrorCode:        o.ErrorCode,
			ErrorMessage:     o.ErrorMessage,
			InvoicesFound:    o.InvoicesFound,
			DocumentsStored:  o.DocumentsStored,
			DocumentsSkipped: o.DocumentsSkipped,
			RemindersCreated: o.RemindersCreated,
			InvoiceErrors:    o.InvoiceErrors,
		})
	}
	return out
}
