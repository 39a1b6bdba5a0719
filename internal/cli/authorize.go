package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/googleauth"
)

func newAuthorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Authorize access to Google Drive and Tasks",
		Long: `Run the one-time OAuth consent flow: print the consent URL, then
exchange the pasted authorization code for a token stored next to the
credentials file. The server refreshes that token on its own afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			auth := googleauth.NewManager(cfg.Google.CredentialsPath, cfg.Google.TokenPath)
			if auth.HasToken() {
				fmt.Println("Already authorized. Delete the token file to start over.")
				return nil
			}

			authURL, err := auth.AuthURL()
			if err != nil {
				return err
			}

			fmt.Println("Open the following URL in your browser and grant access:")
			fmt.Println()
			fmt.Println("  " + authURL)
			fmt.Println()
			fmt.Print("Paste the authorization code: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code given")
			}

			if err := auth.Authorize(context.Background(), code); err != nil {
				return err
			}

			fmt.Println("Authorization complete.")
			return nil
		},
	}
}
