package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			configDir := home + "/.bolletta"
			if err := os.MkdirAll(configDir, 0700); err != nil {
				return err
			}

			path := configDir + "/config.yaml"
			if _, err := os.Stat(path); err == nil {
				fmt.Println("Config file already exists:", path)
				return nil
			}

			content := "server_url: http://localhost:8080\napi_key: \"\"\noutput: table\n"
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				return err
			}
			fmt.Println("Created", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set(args[0], args[1])
			return viper.WriteConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(viper.Get(args[0]))
			return nil
		},
	})

	return cmd
}
