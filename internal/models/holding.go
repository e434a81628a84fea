package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Security identifies a tradeable instrument referenced by trade entries
// and holding rows.
type Security struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Exchange  string    `json:"exchange,omitempty"`
	Currency  string    `json:"currency"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SecurityPrice is one day's closing price for a security, as fetched from
// the market-data provider and persisted locally.
type SecurityPrice struct {
	SecurityID string          `json:"security_id" badgerhold:"index"`
	Date       Date            `json:"date"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
}

// Key returns the natural identity of the price row.
func (p *SecurityPrice) Key() string {
	return p.SecurityID + "|" + p.Date.String()
}

// Holding is one derived row of an account's daily per-security position
// history. Like Balance rows, holdings are rewritten wholesale on sync.
type Holding struct {
	AccountID  string          `json:"account_id" badgerhold:"index"`
	SecurityID string          `json:"security_id"`
	Date       Date            `json:"date"`
	Currency   string          `json:"currency"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Amount     decimal.Decimal `json:"amount"` // quantity * price

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the natural identity of the row.
func (h *Holding) Key() string {
	return h.AccountID + "|" + h.SecurityID + "|" + h.Date.String() + "|" + h.Currency
}
