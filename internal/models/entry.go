package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind discriminates the payload carried by an Entry.
type EntryKind string

const (
	EntryKindValuation   EntryKind = "valuation"
	EntryKindTransaction EntryKind = "transaction"
	EntryKindTrade       EntryKind = "trade"
)

// ValuationKind distinguishes authoritative anchors from informational
// reconciliations. Anchors are absolute truths for balance reconstruction;
// reconciliations are user point-in-time assertions and are ignored by
// reverse calculation.
type ValuationKind string

const (
	ValuationKindOpeningAnchor  ValuationKind = "opening_anchor"
	ValuationKindCurrentAnchor  ValuationKind = "current_anchor"
	ValuationKindReconciliation ValuationKind = "reconciliation"
)

// Anchor returns true for valuation kinds that are authoritative absolute values.
func (k ValuationKind) Anchor() bool {
	return k == ValuationKindOpeningAnchor || k == ValuationKindCurrentAnchor
}

// Valuation asserts an account's absolute value on a date. Amount on the
// owning entry is the asserted total; NonCashAmount, when set, records how
// much of that total is non-cash (holdings, property value).
type Valuation struct {
	Kind          ValuationKind    `json:"kind"`
	NonCashAmount *decimal.Decimal `json:"non_cash_amount,omitempty"`
}

// Trade moves value between the cash and holdings components of a mixed
// account. Quantity is signed: buys positive, sells negative.
type Trade struct {
	SecurityID string          `json:"security_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Entry is one dated event on an account's ledger: a valuation, a
// transaction, or a trade. Exactly one payload pointer is set, matching
// Kind. Amount follows the signed convention used throughout Keel:
// negative = inflow / value-increase for an asset, positive = outflow.
// Valuation entries carry the asserted absolute value as a positive Amount.
type Entry struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id" badgerhold:"index"`
	Date      Date            `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Kind      EntryKind       `json:"kind"`
	Name      string          `json:"name,omitempty"`

	Valuation *Valuation `json:"valuation,omitempty"`
	Trade     *Trade     `json:"trade,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks kind/payload consistency.
func (e *Entry) Validate() error {
	if e.AccountID == "" {
		return fmt.Errorf("entry account id is required")
	}
	if e.Date.IsZero() {
		return fmt.Errorf("entry date is required")
	}
	if e.Currency == "" {
		return fmt.Errorf("entry currency is required")
	}
	switch e.Kind {
	case EntryKindValuation:
		if e.Valuation == nil || e.Trade != nil {
			return fmt.Errorf("valuation entry must carry exactly a valuation payload")
		}
		if e.Valuation.NonCashAmount != nil && e.Valuation.NonCashAmount.GreaterThan(e.Amount) {
			return fmt.Errorf("valuation non-cash amount %s exceeds total %s", e.Valuation.NonCashAmount, e.Amount)
		}
	case EntryKindTransaction:
		if e.Valuation != nil || e.Trade != nil {
			return fmt.Errorf("transaction entry must carry no payload")
		}
	case EntryKindTrade:
		if e.Trade == nil || e.Valuation != nil {
			return fmt.Errorf("trade entry must carry exactly a trade payload")
		}
		if e.Trade.SecurityID == "" {
			return fmt.Errorf("trade security id is required")
		}
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	return nil
}

// ValuationKindOf returns the valuation kind, or "" for non-valuation entries.
func (e *Entry) ValuationKindOf() ValuationKind {
	if e.Kind == EntryKindValuation && e.Valuation != nil {
		return e.Valuation.Kind
	}
	return ""
}

// Inflow returns the positive inflow magnitude of a signed amount, or zero.
// By convention negative amounts are inflows.
func Inflow(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return amount.Neg()
	}
	return decimal.Zero
}

// Outflow returns the positive outflow magnitude of a signed amount, or zero.
func Outflow(amount decimal.Decimal) decimal.Decimal {
	if amount.IsPositive() {
		return amount
	}
	return decimal.Zero
}
