package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/keelfin/keel/internal/app"
	"github.com/keelfin/keel/internal/models"
	"github.com/keelfin/keel/internal/services/balance"
)

func newReconcileCommand(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile <account-id> <balance> <date>",
		Short: "Correct an account's balance on a past date",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid balance %q: %w", args[1], err)
			}
			date, err := models.ParseDate(args[2])
			if err != nil {
				return err
			}

			return withApp(*configPath, func(a *app.App) error {
				result, err := a.ReconciliationManager.Reconcile(cmd.Context(), balance.ReconciliationRequest{
					AccountID: args[0],
					Balance:   amount,
					Date:      date,
					DryRun:    dryRun,
				})
				if err != nil {
					return err
				}
				if dryRun {
					fmt.Printf("Would set %s: balance %s (cash %s, non-cash %s)\n",
						date, result.Balance, result.CashBalance, result.NonCashBalance)
					return nil
				}
				fmt.Printf("Reconciled %s: balance %s (cash %s, non-cash %s)\n",
					date, result.Balance, result.CashBalance, result.NonCashBalance)
				fmt.Println("Run keel sync to rebuild the balance history")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the result without persisting")

	return cmd
}
