package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keelfin/keel/internal/app"
)

func newAccountsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts with their cached balances and sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(a *app.App) error {
				accounts, err := a.Storage.AccountStore().List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tTYPE\tCURRENCY\tBALANCE\tSYNC STATUS")
				for _, account := range accounts {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						account.ID, account.Name, account.Type, account.Currency,
						account.Balance, account.SyncStatus)
				}
				return w.Flush()
			})
		},
	}
}
