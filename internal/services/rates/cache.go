// Package rates resolves exchange rates for currency conversion during a sync.
package rates

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
)

// fetchLookback is how many days before the requested date a provider fetch
// covers, so weekends and market holidays still yield a carry-forward rate.
const fetchLookback = 7

// ConversionError reports that no exchange rate could be resolved for a
// currency pair on a date and no fallback was supplied.
type ConversionError struct {
	From string
	To   string
	Date models.Date
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("no exchange rate available for %s/%s on %s", e.From, e.To, e.Date)
}

// Cache resolves exchange rates with per-instance memoization. A fresh Cache
// is created for each sync so repeated lookups for the same pair and date hit
// memory instead of storage or the provider.
type Cache struct {
	store    interfaces.RateStore
	provider interfaces.RateProvider
	logger   *common.Logger

	mu   sync.Mutex
	memo map[string]decimal.Decimal
}

// NewCache creates an exchange rate cache. The provider may be nil, in which
// case resolution stops at stored rates.
func NewCache(store interfaces.RateStore, provider interfaces.RateProvider, logger *common.Logger) *Cache {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Cache{
		store:    store,
		provider: provider,
		logger:   logger,
		memo:     make(map[string]decimal.Decimal),
	}
}

// Convert converts amount from one currency to another on a date. If no rate
// can be resolved the fallback rate is used when supplied, otherwise a
// ConversionError is returned.
func (c *Cache) Convert(ctx context.Context, amount decimal.Decimal, from, to string, date models.Date, fallback *decimal.Decimal) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, from, to, date)
	if err != nil {
		if fallback != nil {
			c.logger.Warn().
				Str("from", from).
				Str("to", to).
				Str("date", date.String()).
				Msg("Using fallback exchange rate")
			return amount.Mul(*fallback), nil
		}
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// Rate resolves the exchange rate for a pair on a date. Resolution order is
// identity, memo, stored rate on the date, stored rate carried forward from an
// earlier date, then a provider fetch that persists what it finds.
func (c *Cache) Rate(ctx context.Context, from, to string, date models.Date) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := from + "|" + to + "|" + date.String()

	c.mu.Lock()
	if rate, ok := c.memo[key]; ok {
		c.mu.Unlock()
		return rate, nil
	}
	c.mu.Unlock()

	rate, err := c.resolve(ctx, from, to, date)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	c.memo[key] = rate
	c.mu.Unlock()
	return rate, nil
}

func (c *Cache) resolve(ctx context.Context, from, to string, date models.Date) (decimal.Decimal, error) {
	if stored, err := c.store.RateOnDate(ctx, from, to, date); err != nil {
		return decimal.Zero, fmt.Errorf("rate lookup %s/%s: %w", from, to, err)
	} else if stored != nil {
		return stored.Rate, nil
	}

	if stored, err := c.store.RateOnOrBefore(ctx, from, to, date); err != nil {
		return decimal.Zero, fmt.Errorf("rate lookup %s/%s: %w", from, to, err)
	} else if stored != nil {
		return stored.Rate, nil
	}

	if c.provider != nil {
		if rate, ok := c.fetch(ctx, from, to, date); ok {
			return rate, nil
		}
	}

	return decimal.Zero, &ConversionError{From: from, To: to, Date: date}
}

// fetch pulls rates from the provider for a window ending on date, persists
// them, and returns the latest fetched rate on or before date. Provider
// failures degrade to a miss rather than failing the conversion outright.
func (c *Cache) fetch(ctx context.Context, from, to string, date models.Date) (decimal.Decimal, bool) {
	fetched, err := c.provider.FetchRates(ctx, from, to, date.Add(-fetchLookback), date)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("from", from).
			Str("to", to).
			Str("date", date.String()).
			Msg("Provider rate fetch failed")
		return decimal.Zero, false
	}
	if len(fetched) == 0 {
		return decimal.Zero, false
	}

	if err := c.store.SaveRates(ctx, fetched); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist fetched exchange rates")
	}

	var best *models.ExchangeRate
	for i := range fetched {
		if fetched[i].Date.After(date) {
			continue
		}
		if best == nil || best.Date.Before(fetched[i].Date) {
			best = &fetched[i]
		}
	}
	if best == nil {
		return decimal.Zero, false
	}
	return best.Rate, true
}
