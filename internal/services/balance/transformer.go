// Package balance reconstructs gap-free daily balance history for an account
// from its sparse entry ledger, in either calculation direction.
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/keelfin/keel/internal/models"
)

// DayFlows holds one day's flow magnitudes, all non-negative, already in the
// account currency.
type DayFlows struct {
	CashInflows     decimal.Decimal
	CashOutflows    decimal.Decimal
	NonCashInflows  decimal.Decimal
	NonCashOutflows decimal.Decimal
}

// CashEffect is the day's net signed movement of the cash component.
func (f DayFlows) CashEffect(factor decimal.Decimal) decimal.Decimal {
	return f.CashInflows.Sub(f.CashOutflows).Mul(factor)
}

// NonCashEffect is the day's net signed movement of the non-cash component.
func (f DayFlows) NonCashEffect(factor decimal.Decimal) decimal.Decimal {
	return f.NonCashInflows.Sub(f.NonCashOutflows).Mul(factor)
}

// DayResult is one day's fully solved balance state. Both directions produce
// it: forward solves the end values, reverse solves the start values. Every
// result satisfies the per-day equation exactly.
type DayResult struct {
	StartCash    decimal.Decimal
	StartNonCash decimal.Decimal
	EndCash      decimal.Decimal
	EndNonCash   decimal.Decimal

	Flows              DayFlows
	NetMarketFlows     decimal.Decimal
	CashAdjustments    decimal.Decimal
	NonCashAdjustments decimal.Decimal
}

// EndTotal is the day's closing balance.
func (r DayResult) EndTotal() decimal.Decimal {
	return r.EndCash.Add(r.EndNonCash)
}

// StartTotal is the day's opening balance.
func (r DayResult) StartTotal() decimal.Decimal {
	return r.StartCash.Add(r.StartNonCash)
}

// Transformer turns one day's entries into balance movements. It is pure:
// entry amounts must already be converted to the account currency, and no
// storage is touched.
type Transformer struct{}

// NewTransformer creates a transformer.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Accumulate folds the day's entries into flow magnitudes according to the
// account's cash model. Valuations contribute no flows; they force absolute
// values and are applied by the direction-specific transforms. Trades move
// cash and non-cash in equal and opposite measure, leaving the total alone.
func (t *Transformer) Accumulate(account *models.Account, entries []models.Entry) DayFlows {
	model := account.CashModel()
	var flows DayFlows
	for i := range entries {
		e := &entries[i]
		switch e.Kind {
		case models.EntryKindTransaction:
			switch model {
			case models.CashModelCashOnly, models.CashModelMixed:
				flows.CashInflows = flows.CashInflows.Add(models.Inflow(e.Amount))
				flows.CashOutflows = flows.CashOutflows.Add(models.Outflow(e.Amount))
			case models.CashModelNonCashWithPayments:
				flows.NonCashInflows = flows.NonCashInflows.Add(models.Inflow(e.Amount))
				flows.NonCashOutflows = flows.NonCashOutflows.Add(models.Outflow(e.Amount))
			case models.CashModelNonCashOnly:
				// Recorded for display only; never moves the balance.
			}
		case models.EntryKindTrade:
			if model != models.CashModelMixed {
				continue
			}
			// A buy spends cash and acquires holdings; a sell the opposite.
			flows.CashInflows = flows.CashInflows.Add(models.Inflow(e.Amount))
			flows.CashOutflows = flows.CashOutflows.Add(models.Outflow(e.Amount))
			flows.NonCashInflows = flows.NonCashInflows.Add(models.Outflow(e.Amount))
			flows.NonCashOutflows = flows.NonCashOutflows.Add(models.Inflow(e.Amount))
		}
	}
	return flows
}

// ForwardInput is one day's known state for a forward transform.
type ForwardInput struct {
	StartCash    decimal.Decimal
	StartNonCash decimal.Decimal
	// Entries on this day, amounts in the account currency.
	Entries []models.Entry
	// HoldingsValue, when set, overrides the day's non-cash balance for
	// mixed accounts; the delta against the naive projection becomes
	// net_market_flows.
	HoldingsValue *decimal.Decimal
}

// Forward solves the day's end values from its start values.
func (t *Transformer) Forward(account *models.Account, in ForwardInput) DayResult {
	factor := account.FlowsFactor()
	flows := t.Accumulate(account, in.Entries)

	result := DayResult{
		StartCash:    in.StartCash,
		StartNonCash: in.StartNonCash,
		Flows:        flows,
	}

	result.EndCash = in.StartCash.Add(flows.CashEffect(factor))
	result.EndNonCash = in.StartNonCash.Add(flows.NonCashEffect(factor))

	if in.HoldingsValue != nil && account.CashModel() == models.CashModelMixed {
		result.NetMarketFlows = in.HoldingsValue.Sub(result.EndNonCash)
		result.EndNonCash = *in.HoldingsValue
	}

	if valuation := dayValuation(in.Entries); valuation != nil {
		targetCash, targetNonCash := t.splitValuation(account, valuation, in.HoldingsValue)
		result.CashAdjustments = targetCash.Sub(result.EndCash)
		result.NonCashAdjustments = targetNonCash.Sub(result.EndNonCash)
		result.EndCash = targetCash
		result.EndNonCash = targetNonCash
	}

	return result
}

// ReverseInput is one day's known state for a reverse transform.
type ReverseInput struct {
	// EndTotal is the day's authoritative closing balance.
	EndTotal decimal.Decimal
	// EndNonCash is the day's non-cash component, already resolved by the
	// caller (holdings total for mixed accounts, model split otherwise).
	EndNonCash decimal.Decimal
	// StartNonCash, when set, pins the opening non-cash component (the prior
	// day's holdings total); the difference net of trade flows becomes
	// net_market_flows.
	StartNonCash *decimal.Decimal
	Entries      []models.Entry
}

// Reverse solves the day's start values from its end values, algebraically
// inverting the forward equation. The end total is preserved exactly; any
// price-driven holdings movement lands in net_market_flows with the cash
// adjustment compensating.
func (t *Transformer) Reverse(account *models.Account, in ReverseInput) DayResult {
	factor := account.FlowsFactor()
	flows := t.Accumulate(account, in.Entries)

	endCash := in.EndTotal.Sub(in.EndNonCash)
	startTotal := in.EndTotal.Sub(flows.CashEffect(factor)).Sub(flows.NonCashEffect(factor))

	var startNonCash decimal.Decimal
	if in.StartNonCash != nil {
		startNonCash = *in.StartNonCash
	} else {
		startNonCash = in.EndNonCash.Sub(flows.NonCashEffect(factor))
	}
	startCash := startTotal.Sub(startNonCash)

	result := DayResult{
		StartCash:    startCash,
		StartNonCash: startNonCash,
		EndCash:      endCash,
		EndNonCash:   in.EndNonCash,
		Flows:        flows,
	}
	result.NetMarketFlows = in.EndNonCash.Sub(startNonCash).Sub(flows.NonCashEffect(factor))
	result.CashAdjustments = endCash.Sub(startCash).Sub(flows.CashEffect(factor))
	return result
}

// splitValuation resolves a valuation's asserted total into cash and
// non-cash targets per the account's cash model.
func (t *Transformer) splitValuation(account *models.Account, valuation *models.Entry, holdingsValue *decimal.Decimal) (cash, nonCash decimal.Decimal) {
	total := valuation.Amount
	switch account.CashModel() {
	case models.CashModelCashOnly:
		return total, decimal.Zero
	case models.CashModelNonCashOnly, models.CashModelNonCashWithPayments:
		return decimal.Zero, total
	default: // mixed
		switch {
		case valuation.Valuation != nil && valuation.Valuation.NonCashAmount != nil:
			nonCash = *valuation.Valuation.NonCashAmount
		case holdingsValue != nil:
			nonCash = *holdingsValue
		default:
			nonCash = decimal.Zero
		}
		return total.Sub(nonCash), nonCash
	}
}

func dayValuation(entries []models.Entry) *models.Entry {
	for i := range entries {
		if entries[i].Kind == models.EntryKindValuation {
			return &entries[i]
		}
	}
	return nil
}
