// Package commands implements the keel CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/keelfin/keel/internal/app"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "keel",
		Short: "Account balance and holding history reconstruction",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to keel.toml")

	rootCmd.AddCommand(newSyncCommand(&configPath))
	rootCmd.AddCommand(newAccountsCommand(&configPath))
	rootCmd.AddCommand(newBalancesCommand(&configPath))
	rootCmd.AddCommand(newSetBalanceCommand(&configPath))
	rootCmd.AddCommand(newReconcileCommand(&configPath))

	return rootCmd
}

// withApp runs fn against a fully wired application, closing it afterwards.
func withApp(configPath string, fn func(*app.App) error) error {
	a, err := app.New(configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
