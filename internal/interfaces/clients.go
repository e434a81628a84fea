// Package interfaces defines service contracts for Keel
package interfaces

import (
	"context"

	"github.com/keelfin/keel/internal/models"
)

// PriceProvider fetches end-of-day security prices from an external
// market-data API. Missing data for a date or symbol is not an error:
// providers return what they have and the holding calculator degrades
// gracefully over the gaps.
type PriceProvider interface {
	FetchPrices(ctx context.Context, symbol string, start, end models.Date) ([]models.SecurityPrice, error)
}

// RateProvider fetches daily exchange rates for a directional currency
// pair. Consulted by the exchange-rate cache only when the local store
// has no usable rate.
type RateProvider interface {
	FetchRates(ctx context.Context, from, to string, start, end models.Date) ([]models.ExchangeRate, error)
}
