package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered portal adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := apiClient.ListProviders(context.Background())
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(providers)
			}

			t := NewTable("PROVIDER", "CONFIGURED")
			for _, p := range providers {
				configured := "no"
				if p.Configured {
					configured = "yes"
				}
				t.AddRow(p.ID, configured)
			}
			t.Render()
			return nil
		},
	}
}
