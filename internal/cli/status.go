package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if getOutputFormat() != "table" {
				summary := map[string]interface{}{}

				if health, err := apiClient.Health(ctx); err == nil {
					summary["health"] = health.Status
				}
				if providers, err := apiClient.ListProviders(ctx); err == nil {
					configured := 0
					for _, p := range providers {
						if p.Configured {
							configured++
						}
					}
					summary["providers"] = len(providers)
					summary["configured"] = configured
				}
				if runs, err := apiClient.ListRuns(ctx, 1); err == nil && len(runs) > 0 {
					summary["last_run"] = runs[0].ID
					summary["last_run_status"] = runs[0].Status
				}
				return printOutput(summary)
			}

			fmt.Println("Bolletta Sync")
			fmt.Println(strings.Repeat("=", 40))

			if _, err := apiClient.Health(ctx); err != nil {
				fmt.Printf("  Server:     (error: %v)\n", err)
				return nil
			}
			fmt.Println("  Server:     ok")

			providers, err := apiClient.ListProviders(ctx)
			if err != nil {
				fmt.Printf("  Providers:  (error: %v)\n", err)
			} else {
				configured := 0
				for _, p := range providers {
					if p.Configured {
						configured++
					}
				}
				fmt.Printf("  Providers:  %d configured (%d total)\n", configured, len(providers))
			}

			runs, err := apiClient.ListRuns(ctx, 1)
			if err != nil {
				fmt.Printf("  Last run:   (error: %v)\n", err)
			} else if len(runs) == 0 {
				fmt.Println("  Last run:   none")
			} else {
				fmt.Printf("  Last run:   %s %s (%s)\n", runs[0].StartedAt, formatStatus(runs[0].Status), runs[0].ID)
			}

			return nil
		},
	}
}
