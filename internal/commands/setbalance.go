package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/keelfin/keel/internal/app"
	"github.com/keelfin/keel/internal/models"
	"github.com/keelfin/keel/internal/services/balance"
)

func newSetBalanceCommand(configPath *string) *cobra.Command {
	var opening bool
	var date string
	var cash string

	cmd := &cobra.Command{
		Use:   "set-balance <account-id> <amount>",
		Short: "Set an account's opening or current balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			return withApp(*configPath, func(a *app.App) error {
				ctx := cmd.Context()
				if opening {
					req := balance.OpeningRequest{AccountID: args[0], Amount: amount, Date: models.Today()}
					if date != "" {
						d, err := models.ParseDate(date)
						if err != nil {
							return err
						}
						req.Date = d
					}
					if cash != "" {
						c, err := decimal.NewFromString(cash)
						if err != nil {
							return fmt.Errorf("invalid cash amount %q: %w", cash, err)
						}
						req.CashAmount = &c
					}
					entry, err := a.OpeningManager.Set(ctx, req)
					if err != nil {
						return err
					}
					fmt.Printf("Opening balance set to %s on %s\n", entry.Amount, entry.Date)
					return nil
				}

				result, err := a.CurrentManager.Set(ctx, balance.CurrentRequest{AccountID: args[0], Amount: amount})
				if err != nil {
					return err
				}
				if !result.Changed {
					fmt.Println("No changes made")
					return nil
				}
				fmt.Printf("Current balance set to %s\n", result.Entry.Amount)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opening, "opening", false, "set the opening balance instead of the current one")
	cmd.Flags().StringVar(&date, "date", "", "opening balance date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&cash, "cash", "", "cash component of the opening balance")

	return cmd
}
