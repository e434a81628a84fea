package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is one derived row of an account's daily balance history.
// Rows are rewritten wholesale on every sync and never hand-edited.
//
// The end-of-day values are defined from the start-of-day values by:
//
//	end_cash     = start_cash     + (cash_inflows - cash_outflows) * flows_factor + cash_adjustments
//	end_non_cash = start_non_cash + (non_cash_inflows - non_cash_outflows) * flows_factor + net_market_flows + non_cash_adjustments
//	balance      = end_cash + end_non_cash
//
// Both calculation directions solve this same equation: forward for the end
// values, reverse for the start values.
type Balance struct {
	AccountID string          `json:"account_id" badgerhold:"index"`
	Date      Date            `json:"date"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`

	CashBalance    decimal.Decimal `json:"cash_balance"`
	NonCashBalance decimal.Decimal `json:"non_cash_balance"`

	StartCashBalance    decimal.Decimal `json:"start_cash_balance"`
	StartNonCashBalance decimal.Decimal `json:"start_non_cash_balance"`

	CashInflows     decimal.Decimal `json:"cash_inflows"`
	CashOutflows    decimal.Decimal `json:"cash_outflows"`
	NonCashInflows  decimal.Decimal `json:"non_cash_inflows"`
	NonCashOutflows decimal.Decimal `json:"non_cash_outflows"`

	NetMarketFlows     decimal.Decimal `json:"net_market_flows"`
	CashAdjustments    decimal.Decimal `json:"cash_adjustments"`
	NonCashAdjustments decimal.Decimal `json:"non_cash_adjustments"`

	FlowsFactor int `json:"flows_factor"` // +1 asset, -1 liability

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the natural identity of the row.
func (b *Balance) Key() string {
	return b.AccountID + "|" + b.Date.String() + "|" + b.Currency
}

// Check verifies the row's internal consistency: the balance decomposition
// and the per-day equation both hold exactly.
func (b *Balance) Check() error {
	if !b.Balance.Equal(b.CashBalance.Add(b.NonCashBalance)) {
		return fmt.Errorf("balance %s != cash %s + non-cash %s on %s",
			b.Balance, b.CashBalance, b.NonCashBalance, b.Date)
	}
	factor := decimal.NewFromInt(int64(b.FlowsFactor))
	endCash := b.StartCashBalance.
		Add(b.CashInflows.Sub(b.CashOutflows).Mul(factor)).
		Add(b.CashAdjustments)
	if !endCash.Equal(b.CashBalance) {
		return fmt.Errorf("cash equation does not hold on %s: derived %s, stored %s",
			b.Date, endCash, b.CashBalance)
	}
	endNonCash := b.StartNonCashBalance.
		Add(b.NonCashInflows.Sub(b.NonCashOutflows).Mul(factor)).
		Add(b.NetMarketFlows).
		Add(b.NonCashAdjustments)
	if !endNonCash.Equal(b.NonCashBalance) {
		return fmt.Errorf("non-cash equation does not hold on %s: derived %s, stored %s",
			b.Date, endNonCash, b.NonCashBalance)
	}
	return nil
}
