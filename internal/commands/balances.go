package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keelfin/keel/internal/app"
)

func newBalancesCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "balances <account-id>",
		Short: "Show an account's daily balance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(a *app.App) error {
				rows, err := a.Storage.BalanceStore().ByAccount(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Printf("No balance history for account %s, run keel sync first\n", args[0])
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "DATE\tBALANCE\tCASH\tNON-CASH\tMARKET FLOWS")
				for i := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						rows[i].Date, rows[i].Balance, rows[i].CashBalance,
						rows[i].NonCashBalance, rows[i].NetMarketFlows)
				}
				return w.Flush()
			})
		},
	}
}
