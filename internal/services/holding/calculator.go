// Package holding reconstructs per-security daily position history from
// trades, holding snapshots, and market prices.
package holding

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
	"github.com/keelfin/keel/internal/services/rates"
)

// Calculator derives daily holding rows for an account. Forward accumulates
// trade quantities from zero; reverse walks back from the current holdings
// snapshot undoing trades.
type Calculator struct {
	entries    interfaces.EntryStore
	holdings   interfaces.HoldingStore
	securities interfaces.SecurityStore
	provider   interfaces.PriceProvider
	logger     *common.Logger
}

// NewCalculator creates a holding calculator. The provider may be nil, in
// which case only locally persisted prices are used.
func NewCalculator(storage interfaces.StorageManager, provider interfaces.PriceProvider, logger *common.Logger) *Calculator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Calculator{
		entries:    storage.EntryStore(),
		holdings:   storage.HoldingStore(),
		securities: storage.SecurityStore(),
		provider:   provider,
		logger:     logger,
	}
}

// CalculateForward reconstructs holdings chronologically: each security's
// quantity starts at zero on its first trade date and accumulates signed
// trade quantities. Days without a known price produce no row.
func (c *Calculator) CalculateForward(ctx context.Context, account *models.Account, r models.DateRange) ([]models.Holding, error) {
	trades, err := c.tradesBySecurity(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	var rows []models.Holding
	for _, securityID := range sortedKeys(trades) {
		series := trades[securityID]

		prices, currency, err := c.priceSeries(ctx, securityID, r)
		if err != nil {
			return nil, err
		}
		if currency == "" {
			currency = account.Currency
		}

		quantity := decimal.Zero
		for d := r.Start; !d.After(r.End); d = d.Add(1) {
			quantity = quantity.Add(series.deltaOn(d))
			if quantity.IsZero() && series.deltaOn(d).IsZero() {
				continue
			}
			price, ok := prices.on(d)
			if !ok {
				continue
			}
			rows = append(rows, c.row(account.ID, securityID, d, currency, quantity, price))
		}
	}

	return rows, nil
}

// CalculateReverse reconstructs holdings backward from the account's current
// holdings snapshot. A snapshot security with no trade history is carried
// back flat for the whole range.
func (c *Calculator) CalculateReverse(ctx context.Context, account *models.Account, r models.DateRange) ([]models.Holding, error) {
	trades, err := c.tradesBySecurity(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	snapshot, err := c.holdings.LatestByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings snapshot: %w", err)
	}

	current := make(map[string]decimal.Decimal)
	for _, h := range snapshot {
		current[h.SecurityID] = h.Quantity
	}
	securityIDs := make(map[string]bool)
	for id := range current {
		securityIDs[id] = true
	}
	for id := range trades {
		securityIDs[id] = true
	}

	var rows []models.Holding
	for _, securityID := range sortedKeySet(securityIDs) {
		series := trades[securityID]

		prices, currency, err := c.priceSeries(ctx, securityID, r)
		if err != nil {
			return nil, err
		}
		if currency == "" {
			currency = account.Currency
		}

		// Quantity on day d equals the current quantity with every trade
		// strictly after d undone. No trades means a flat carry-back.
		endQuantity := current[securityID]
		var daily []models.Holding
		quantity := endQuantity
		for d := r.End; !d.Before(r.Start); d = d.Add(-1) {
			if quantity.IsZero() && series.deltaOn(d).IsZero() {
				continue
			}
			if price, ok := prices.on(d); ok {
				daily = append(daily, c.row(account.ID, securityID, d, currency, quantity, price))
			}
			quantity = quantity.Sub(series.deltaOn(d))
		}
		// Walked newest to oldest; flip into date order.
		for i := len(daily) - 1; i >= 0; i-- {
			rows = append(rows, daily[i])
		}
	}

	return rows, nil
}

// Materialize atomically replaces the account's persisted holding rows with
// the calculated set.
func (c *Calculator) Materialize(ctx context.Context, account *models.Account, rows []models.Holding, calculated models.DateRange) error {
	if err := c.holdings.ReplaceRange(ctx, account.ID, rows, calculated); err != nil {
		return fmt.Errorf("failed to materialize holdings for account %s: %w", account.ID, err)
	}
	c.logger.Debug().
		Str("account_id", account.ID).
		Int("rows", len(rows)).
		Msg("Materialized holding rows")
	return nil
}

// DayTotals sums holding value per date in the account's currency. Rows in a
// foreign currency are converted at that date's exchange rate; an unresolvable
// rate fails the calculation.
func (c *Calculator) DayTotals(ctx context.Context, account *models.Account, rows []models.Holding, cache *rates.Cache) (map[models.Date]decimal.Decimal, error) {
	totals := make(map[models.Date]decimal.Decimal)
	for i := range rows {
		amount := rows[i].Amount
		if rows[i].Currency != account.Currency {
			converted, err := cache.Convert(ctx, amount, rows[i].Currency, account.Currency, rows[i].Date, nil)
			if err != nil {
				return nil, err
			}
			amount = converted
		}
		totals[rows[i].Date] = totals[rows[i].Date].Add(amount)
	}
	return totals, nil
}

func (c *Calculator) row(accountID, securityID string, date models.Date, currency string, quantity, price decimal.Decimal) models.Holding {
	now := time.Now().UTC()
	return models.Holding{
		AccountID:  accountID,
		SecurityID: securityID,
		Date:       date,
		Currency:   currency,
		Quantity:   quantity,
		Price:      price,
		Amount:     quantity.Mul(price),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// tradeSeries maps date to the day's net signed trade quantity.
type tradeSeries map[models.Date]decimal.Decimal

func (s tradeSeries) deltaOn(d models.Date) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s[d]
}

func (c *Calculator) tradesBySecurity(ctx context.Context, accountID string) (map[string]tradeSeries, error) {
	entries, err := c.entries.ByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	trades := make(map[string]tradeSeries)
	for i := range entries {
		e := &entries[i]
		if e.Kind != models.EntryKindTrade || e.Trade == nil {
			continue
		}
		series := trades[e.Trade.SecurityID]
		if series == nil {
			series = make(tradeSeries)
			trades[e.Trade.SecurityID] = series
		}
		series[e.Date] = series[e.Date].Add(e.Trade.Quantity)
	}
	return trades, nil
}

// priceLookup answers "price on date" with carry-forward within the loaded
// window. known is false before the first known price.
type priceLookup struct {
	series []models.SecurityPrice // date ascending
}

func (p priceLookup) on(d models.Date) (decimal.Decimal, bool) {
	var best *models.SecurityPrice
	for i := range p.series {
		if p.series[i].Date.After(d) {
			break
		}
		best = &p.series[i]
	}
	if best == nil {
		return decimal.Zero, false
	}
	return best.Price, true
}

// priceSeries loads the security's price series for the range, fetching from
// the provider when local coverage is missing. Provider failures degrade to
// whatever is stored locally.
func (c *Calculator) priceSeries(ctx context.Context, securityID string, r models.DateRange) (priceLookup, string, error) {
	stored, err := c.securities.PricesInRange(ctx, securityID, r)
	if err != nil {
		return priceLookup{}, "", fmt.Errorf("failed to load prices for %s: %w", securityID, err)
	}

	if c.provider != nil && (len(stored) == 0 || stored[len(stored)-1].Date.Before(r.End)) {
		fetched, err := c.provider.FetchPrices(ctx, securityID, r.Start, r.End)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("security_id", securityID).
				Msg("Price fetch failed, using stored prices only")
		} else if len(fetched) > 0 {
			if err := c.securities.SavePrices(ctx, fetched); err != nil {
				c.logger.Warn().Err(err).Str("security_id", securityID).Msg("Failed to persist fetched prices")
			}
			stored, err = c.securities.PricesInRange(ctx, securityID, r)
			if err != nil {
				return priceLookup{}, "", fmt.Errorf("failed to reload prices for %s: %w", securityID, err)
			}
		}
	}

	// Seed carry-forward with the latest price before the range.
	if len(stored) == 0 || stored[0].Date.After(r.Start) {
		if earlier, err := c.securities.PriceOnOrBefore(ctx, securityID, r.Start.Add(-1)); err != nil {
			return priceLookup{}, "", fmt.Errorf("failed to load prior price for %s: %w", securityID, err)
		} else if earlier != nil {
			stored = append([]models.SecurityPrice{*earlier}, stored...)
		}
	}

	currency := ""
	if len(stored) > 0 {
		currency = stored[0].Currency
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Date.Before(stored[j].Date) })
	return priceLookup{series: stored}, currency, nil
}

func sortedKeys(m map[string]tradeSeries) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeySet(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
