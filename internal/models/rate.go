package models

import (
	"github.com/shopspring/decimal"
)

// ExchangeRate is one day's conversion rate from one currency to another.
// Rates are directional: the inverse pair is a separate row, never assumed.
type ExchangeRate struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Date         Date            `json:"date"`
	Rate         decimal.Decimal `json:"rate"`
}

// Key returns the natural identity of the rate row.
func (r *ExchangeRate) Key() string {
	return r.FromCurrency + "|" + r.ToCurrency + "|" + r.Date.String()
}

// Pair returns the directional currency pair, e.g. "JPY/USD".
func (r *ExchangeRate) Pair() string {
	return r.FromCurrency + "/" + r.ToCurrency
}
