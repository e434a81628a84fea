package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type rateStore struct {
	store  *Store
	logger *common.Logger
}

func newRateStore(store *Store, logger *common.Logger) *rateStore {
	return &rateStore{store: store, logger: logger}
}

func (s *rateStore) SaveRates(_ context.Context, rates []models.ExchangeRate) error {
	for i := range rates {
		if rates[i].FromCurrency == "" || rates[i].ToCurrency == "" {
			return fmt.Errorf("rate row missing currency pair")
		}
		if err := s.store.db.Upsert(rates[i].Key(), rates[i]); err != nil {
			return fmt.Errorf("failed to save rate %s: %w", rates[i].Key(), err)
		}
	}
	return nil
}

func (s *rateStore) ratesFor(from, to string) ([]models.ExchangeRate, error) {
	var rates []models.ExchangeRate
	err := s.store.db.Find(&rates,
		badgerhold.Where("FromCurrency").Eq(from).And("ToCurrency").Eq(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list rates for %s/%s: %w", from, to, err)
	}
	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].Date.Before(rates[j].Date)
	})
	return rates, nil
}

func (s *rateStore) RateOnDate(_ context.Context, from, to string, date models.Date) (*models.ExchangeRate, error) {
	rates, err := s.ratesFor(from, to)
	if err != nil {
		return nil, err
	}
	for i := range rates {
		if rates[i].Date == date {
			return &rates[i], nil
		}
	}
	return nil, nil
}

func (s *rateStore) RateOnOrBefore(_ context.Context, from, to string, date models.Date) (*models.ExchangeRate, error) {
	rates, err := s.ratesFor(from, to)
	if err != nil {
		return nil, err
	}
	var found *models.ExchangeRate
	for i := range rates {
		if rates[i].Date.After(date) {
			break
		}
		found = &rates[i]
	}
	return found, nil
}
