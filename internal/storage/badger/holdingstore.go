package badger

import (
	"context"
	"fmt"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type holdingStore struct {
	store  *Store
	logger *common.Logger
}

func newHoldingStore(store *Store, logger *common.Logger) *holdingStore {
	return &holdingStore{store: store, logger: logger}
}

// ReplaceRange mirrors balanceStore.ReplaceRange for holding rows.
func (s *holdingStore) ReplaceRange(_ context.Context, accountID string, rows []models.Holding, calculated models.DateRange) error {
	for i := range rows {
		if rows[i].AccountID != accountID {
			return fmt.Errorf("holding row for account '%s' in replace for '%s'", rows[i].AccountID, accountID)
		}
		if !calculated.Contains(rows[i].Date) {
			return fmt.Errorf("holding row on %s outside calculated range %s..%s",
				rows[i].Date, calculated.Start, calculated.End)
		}
	}

	err := s.store.db.Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.store.db.TxDeleteMatching(txn, models.Holding{},
			badgerhold.Where("AccountID").Eq(accountID)); err != nil {
			return fmt.Errorf("failed to purge holdings: %w", err)
		}
		for i := range rows {
			if err := s.store.db.TxUpsert(txn, rows[i].Key(), rows[i]); err != nil {
				return fmt.Errorf("failed to upsert holding %s: %w", rows[i].Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace holdings for account '%s': %w", accountID, err)
	}

	s.logger.Debug().
		Str("account", accountID).
		Int("rows", len(rows)).
		Msg("Holding range replaced")
	return nil
}

func (s *holdingStore) ByAccount(_ context.Context, accountID string) ([]models.Holding, error) {
	var holdings []models.Holding
	err := s.store.db.Find(&holdings, badgerhold.Where("AccountID").Eq(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings for account '%s': %w", accountID, err)
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		if holdings[i].Date != holdings[j].Date {
			return holdings[i].Date.Before(holdings[j].Date)
		}
		return holdings[i].SecurityID < holdings[j].SecurityID
	})
	return holdings, nil
}

func (s *holdingStore) LatestByAccount(ctx context.Context, accountID string) ([]models.Holding, error) {
	holdings, err := s.ByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	// Rows are date-ascending, so the last row per security wins.
	latest := make(map[string]models.Holding)
	for _, h := range holdings {
		latest[h.SecurityID] = h
	}
	out := make([]models.Holding, 0, len(latest))
	for _, h := range latest {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SecurityID < out[j].SecurityID })
	return out, nil
}
