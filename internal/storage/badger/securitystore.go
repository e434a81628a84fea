package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type securityStore struct {
	store  *Store
	logger *common.Logger
}

func newSecurityStore(store *Store, logger *common.Logger) *securityStore {
	return &securityStore{store: store, logger: logger}
}

func (s *securityStore) GetSecurity(_ context.Context, id string) (*models.Security, error) {
	var security models.Security
	err := s.store.db.Get(id, &security)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("security '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get security '%s': %w", id, err)
	}
	return &security, nil
}

func (s *securityStore) SaveSecurity(_ context.Context, security *models.Security) error {
	if security.ID == "" || security.Symbol == "" {
		return fmt.Errorf("security id and symbol are required")
	}
	security.UpdatedAt = time.Now()
	if security.CreatedAt.IsZero() {
		security.CreatedAt = time.Now()
	}
	if err := s.store.db.Upsert(security.ID, security); err != nil {
		return fmt.Errorf("failed to save security: %w", err)
	}
	s.logger.Debug().Str("id", security.ID).Str("symbol", security.Symbol).Msg("Security saved")
	return nil
}

func (s *securityStore) ListSecurities(_ context.Context) ([]*models.Security, error) {
	var securities []models.Security
	if err := s.store.db.Find(&securities, nil); err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	out := make([]*models.Security, len(securities))
	for i := range securities {
		out[i] = &securities[i]
	}
	return out, nil
}

func (s *securityStore) SavePrices(_ context.Context, prices []models.SecurityPrice) error {
	for i := range prices {
		if prices[i].SecurityID == "" {
			return fmt.Errorf("price row missing security id")
		}
		if err := s.store.db.Upsert(prices[i].Key(), prices[i]); err != nil {
			return fmt.Errorf("failed to save price %s: %w", prices[i].Key(), err)
		}
	}
	return nil
}

func (s *securityStore) pricesFor(securityID string) ([]models.SecurityPrice, error) {
	var prices []models.SecurityPrice
	err := s.store.db.Find(&prices, badgerhold.Where("SecurityID").Eq(securityID))
	if err != nil {
		return nil, fmt.Errorf("failed to list prices for security '%s': %w", securityID, err)
	}
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})
	return prices, nil
}

func (s *securityStore) PriceOnOrBefore(_ context.Context, securityID string, date models.Date) (*models.SecurityPrice, error) {
	prices, err := s.pricesFor(securityID)
	if err != nil {
		return nil, err
	}
	var found *models.SecurityPrice
	for i := range prices {
		if prices[i].Date.After(date) {
			break
		}
		found = &prices[i]
	}
	return found, nil
}

func (s *securityStore) PricesInRange(_ context.Context, securityID string, r models.DateRange) ([]models.SecurityPrice, error) {
	prices, err := s.pricesFor(securityID)
	if err != nil {
		return nil, err
	}
	var out []models.SecurityPrice
	for _, p := range prices {
		if r.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out, nil
}
