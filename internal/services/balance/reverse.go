package balance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
	"github.com/keelfin/keel/internal/services/holding"
	"github.com/keelfin/keel/internal/services/rates"
)

// ReverseCalculator reconstructs balance history backward from a known
// current value. Used for linked accounts whose entry history may be
// incomplete: the provider-reported total is authoritative, entries only
// explain day-to-day movement.
type ReverseCalculator struct {
	entries      interfaces.EntryStore
	rateStore    interfaces.RateStore
	rateProvider interfaces.RateProvider
	holdings     *holding.Calculator
	transformer  *Transformer
	logger       *common.Logger

	today func() models.Date
}

// NewReverseCalculator creates a reverse calculator. holdings may be nil for
// callers that never calculate mixed accounts.
func NewReverseCalculator(storage interfaces.StorageManager, rateProvider interfaces.RateProvider, holdings *holding.Calculator, logger *common.Logger) *ReverseCalculator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ReverseCalculator{
		entries:      storage.EntryStore(),
		rateStore:    storage.RateStore(),
		rateProvider: rateProvider,
		holdings:     holdings,
		transformer:  NewTransformer(),
		logger:       logger,
		today:        models.Today,
	}
}

// Calculate walks backward from today to the earliest entry date, or to the
// opening anchor, whose value is forced as the terminal balance. Today's
// balance is seeded from the current anchor when present, else the account's
// cached total. Reconciliation valuations are ignored: they are user
// assertions, not guaranteed-complete truths.
func (c *ReverseCalculator) Calculate(ctx context.Context, account *models.Account) ([]models.Balance, error) {
	entries, err := c.entries.ByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for account %s: %w", account.ID, err)
	}

	today := c.today()
	start := today
	if len(entries) > 0 {
		start = entries[0].Date
	}

	var opening *models.Entry
	for i := range entries {
		if entries[i].ValuationKindOf() == models.ValuationKindOpeningAnchor {
			opening = &entries[i]
			break
		}
	}
	if opening != nil {
		start = opening.Date
		for i := range entries {
			if entries[i].ValuationKindOf() == models.ValuationKindReconciliation && entries[i].Date.Before(opening.Date) {
				c.logger.Warn().
					Str("account_id", account.ID).
					Str("entry_id", entries[i].ID).
					Str("date", entries[i].Date.String()).
					Msg("Reconciliation predates the opening anchor and is unreachable, skipping")
			}
		}
	}
	if start.After(today) {
		start = today
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

	endTotal := c.seed(account, byDate[today])

	mixed := account.CashModel() == models.CashModelMixed
	reversed := make([]models.Balance, 0, r.Days())
	for d := r.End; !d.Before(r.Start); d = d.Add(-1) {
		if opening != nil && d == opening.Date {
			// The anchor's value replaces whatever was computed; stop here.
			endTotal = opening.Amount
			if e := findEntry(byDate[d], opening.ID); e != nil {
				endTotal = e.Amount
			}
		}

		in := ReverseInput{
			EndTotal:   endTotal,
			EndNonCash: c.endNonCash(account, endTotal, holdingTotals, d),
			Entries:    flowEntries(byDate[d]),
		}
		if mixed && d.After(r.Start) {
			prior := holdingTotals[d.Add(-1)]
			in.StartNonCash = &prior
		}

		result := c.transformer.Reverse(account, in)
		reversed = append(reversed, buildRow(account, d, result))

		if opening != nil && d == opening.Date {
			break
		}
		endTotal = result.StartTotal()
	}

	// Walked newest to oldest; flip into date order.
	rows := make([]models.Balance, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		rows = append(rows, reversed[i])
	}
	return rows, nil
}

// seed resolves today's authoritative closing balance: the current anchor if
// one exists today, else the account's cached total.
func (c *ReverseCalculator) seed(account *models.Account, todayEntries []models.Entry) decimal.Decimal {
	for i := range todayEntries {
		if todayEntries[i].ValuationKindOf() == models.ValuationKindCurrentAnchor {
			return todayEntries[i].Amount
		}
	}
	return account.Balance
}

// endNonCash resolves a day's non-cash component. Mixed accounts take the
// day's holdings total, so cash falls out as total minus holdings; cash-only
// accounts hold everything in cash; the rest hold everything in non-cash.
func (c *ReverseCalculator) endNonCash(account *models.Account, endTotal decimal.Decimal, holdingTotals map[models.Date]decimal.Decimal, d models.Date) decimal.Decimal {
	switch account.CashModel() {
	case models.CashModelCashOnly:
		return decimal.Zero
	case models.CashModelMixed:
		return holdingTotals[d]
	default:
		return endTotal
	}
}

func (c *ReverseCalculator) holdingTotals(ctx context.Context, account *models.Account, r models.DateRange, cache *rates.Cache) (map[models.Date]decimal.Decimal, error) {
	if account.CashModel() != models.CashModelMixed || c.holdings == nil {
		return nil, nil
	}
	holdingRows, err := c.holdings.CalculateReverse(ctx, account, r)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate holdings for account %s: %w", account.ID, err)
	}
	return c.holdings.DayTotals(ctx, account, holdingRows, cache)
}

// flowEntries drops valuations: reverse calculation takes absolute values
// only from anchors, which are applied to the walk itself.
func flowEntries(entries []models.Entry) []models.Entry {
	out := make([]models.Entry, 0, len(entries))
	for i := range entries {
		if entries[i].Kind == models.EntryKindValuation {
			continue
		}
		out = append(out, entries[i])
	}
	return out
}

func findEntry(entries []models.Entry, id string) *models.Entry {
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i]
		}
	}
	return nil
}
