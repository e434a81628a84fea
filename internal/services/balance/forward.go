package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
	"github.com/keelfin/keel/internal/services/holding"
	"github.com/keelfin/keel/internal/services/rates"
)

// ForwardCalculator reconstructs balance history chronologically from a zero
// baseline, trusting the entry ledger as complete. Used for manual accounts.
type ForwardCalculator struct {
	entries      interfaces.EntryStore
	rateStore    interfaces.RateStore
	rateProvider interfaces.RateProvider
	holdings     *holding.Calculator
	transformer  *Transformer
	logger       *common.Logger

	today func() models.Date
}

// NewForwardCalculator creates a forward calculator. holdings may be nil for
// callers that never calculate mixed accounts.
func NewForwardCalculator(storage interfaces.StorageManager, rateProvider interfaces.RateProvider, holdings *holding.Calculator, logger *common.Logger) *ForwardCalculator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ForwardCalculator{
		entries:      storage.EntryStore(),
		rateStore:    storage.RateStore(),
		rateProvider: rateProvider,
		holdings:     holdings,
		transformer:  NewTransformer(),
		logger:       logger,
		today:        models.Today,
	}
}

// Calculate walks forward one day at a time from the day before the earliest
// entry (a zero baseline row) to today. Days without entries carry the prior
// day's components forward unchanged. A fresh exchange-rate cache is scoped
// to this invocation.
func (c *ForwardCalculator) Calculate(ctx context.Context, account *models.Account) ([]models.Balance, error) {
	entries, err := c.entries.ByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for account %s: %w", account.ID, err)
	}

	today := c.today()
	start := today
	if len(entries) > 0 {
		start = entries[0].Date.Add(-1)
	}
	r := models.DateRange{Start: start, End: today}

	cache := rates.NewCache(c.rateStore, c.rateProvider, c.logger)

	converted, err := convertEntries(ctx, cache, account, entries)
	if err != nil {
		return nil, err
	}
	byDate := groupByDate(converted)

	holdingTotals, err := c.holdingTotals(ctx, account, r, cache)
	if err != nil {
		return nil, err
	}

	rows := make([]models.Balance, 0, r.Days())
	cash, nonCash := decimal.Zero, decimal.Zero
	for d := r.Start; !d.After(r.End); d = d.Add(1) {
		in := ForwardInput{
			StartCash:    cash,
			StartNonCash: nonCash,
			Entries:      byDate[d],
		}
		if holdingTotals != nil {
			if total, ok := holdingTotals[d]; ok {
				in.HoldingsValue = &total
			}
		}
		result := c.transformer.Forward(account, in)
		rows = append(rows, buildRow(account, d, result))
		cash, nonCash = result.EndCash, result.EndNonCash
	}

	return rows, nil
}

// holdingTotals derives the per-day holdings value for mixed accounts, nil
// otherwise.
func (c *ForwardCalculator) holdingTotals(ctx context.Context, account *models.Account, r models.DateRange, cache *rates.Cache) (map[models.Date]decimal.Decimal, error) {
	if account.CashModel() != models.CashModelMixed || c.holdings == nil {
		return nil, nil
	}
	holdingRows, err := c.holdings.CalculateForward(ctx, account, r)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate holdings for account %s: %w", account.ID, err)
	}
	totals, err := c.holdings.DayTotals(ctx, account, holdingRows, cache)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// convertEntries returns copies of the entries with Amount (and a valuation's
// NonCashAmount) converted to the account currency.
func convertEntries(ctx context.Context, cache *rates.Cache, account *models.Account, entries []models.Entry) ([]models.Entry, error) {
	out := make([]models.Entry, len(entries))
	for i := range entries {
		e := entries[i]
		if e.Currency != account.Currency {
			amount, err := cache.Convert(ctx, e.Amount, e.Currency, account.Currency, e.Date, nil)
			if err != nil {
				return nil, err
			}
			e.Amount = amount
			if e.Valuation != nil && e.Valuation.NonCashAmount != nil {
				nonCash, err := cache.Convert(ctx, *e.Valuation.NonCashAmount, e.Currency, account.Currency, e.Date, nil)
				if err != nil {
					return nil, err
				}
				v := *e.Valuation
				v.NonCashAmount = &nonCash
				e.Valuation = &v
			}
			e.Currency = account.Currency
		}
		out[i] = e
	}
	return out, nil
}

func groupByDate(entries []models.Entry) map[models.Date][]models.Entry {
	byDate := make(map[models.Date][]models.Entry)
	for i := range entries {
		byDate[entries[i].Date] = append(byDate[entries[i].Date], entries[i])
	}
	return byDate
}

func buildRow(account *models.Account, d models.Date, result DayResult) models.Balance {
	now := time.Now().UTC()
	factor := 1
	if account.Classification == models.ClassificationLiability {
		factor = -1
	}
	return models.Balance{
		AccountID:           account.ID,
		Date:                d,
		Currency:            account.Currency,
		Balance:             result.EndTotal(),
		CashBalance:         result.EndCash,
		NonCashBalance:      result.EndNonCash,
		StartCashBalance:    result.StartCash,
		StartNonCashBalance: result.StartNonCash,
		CashInflows:         result.Flows.CashInflows,
		CashOutflows:        result.Flows.CashOutflows,
		NonCashInflows:      result.Flows.NonCashInflows,
		NonCashOutflows:     result.Flows.NonCashOutflows,
		NetMarketFlows:      result.NetMarketFlows,
		CashAdjustments:     result.CashAdjustments,
		NonCashAdjustments:  result.NonCashAdjustments,
		FlowsFactor:         factor,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
