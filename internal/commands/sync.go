package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keelfin/keel/internal/app"
)

func newSyncCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [account-id]",
		Short: "Rebuild balance and holding history for one account, or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(a *app.App) error {
				ctx := cmd.Context()
				if len(args) == 1 {
					if err := a.Syncer.Sync(ctx, args[0]); err != nil {
						return err
					}
					fmt.Printf("Synced account %s\n", args[0])
					return nil
				}
				if err := a.Syncer.SyncAll(ctx); err != nil {
					return err
				}
				fmt.Println("All accounts synced")
				return nil
			})
		},
	}
}
