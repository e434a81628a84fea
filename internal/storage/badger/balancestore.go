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

type balanceStore struct {
	store  *Store
	logger *common.Logger
}

func newBalanceStore(store *Store, logger *common.Logger) *balanceStore {
	return &balanceStore{store: store, logger: logger}
}

// ReplaceRange rewrites the account's persisted balance history inside one
// badger write transaction: every existing row is dropped and every
// calculated row upserted, so the store exactly mirrors calculator output
// and no row survives outside the calculated range.
func (s *balanceStore) ReplaceRange(_ context.Context, accountID string, rows []models.Balance, calculated models.DateRange) error {
	for i := range rows {
		if rows[i].AccountID != accountID {
			return fmt.Errorf("balance row for account '%s' in replace for '%s'", rows[i].AccountID, accountID)
		}
		if !calculated.Contains(rows[i].Date) {
			return fmt.Errorf("balance row on %s outside calculated range %s..%s",
				rows[i].Date, calculated.Start, calculated.End)
		}
	}

	err := s.store.db.Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.store.db.TxDeleteMatching(txn, models.Balance{},
			badgerhold.Where("AccountID").Eq(accountID)); err != nil {
			return fmt.Errorf("failed to purge balances: %w", err)
		}
		for i := range rows {
			if err := s.store.db.TxUpsert(txn, rows[i].Key(), rows[i]); err != nil {
				return fmt.Errorf("failed to upsert balance %s: %w", rows[i].Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace balances for account '%s': %w", accountID, err)
	}

	s.logger.Debug().
		Str("account", accountID).
		Int("rows", len(rows)).
		Str("from", calculated.Start.String()).
		Str("to", calculated.End.String()).
		Msg("Balance range replaced")
	return nil
}

func (s *balanceStore) ByAccount(_ context.Context, accountID string) ([]models.Balance, error) {
	var balances []models.Balance
	err := s.store.db.Find(&balances, badgerhold.Where("AccountID").Eq(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to list balances for account '%s': %w", accountID, err)
	}
	sort.SliceStable(balances, func(i, j int) bool {
		return balances[i].Date.Before(balances[j].Date)
	})
	return balances, nil
}

func (s *balanceStore) OnDate(ctx context.Context, accountID string, date models.Date) (*models.Balance, error) {
	balances, err := s.ByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range balances {
		if balances[i].Date == date {
			return &balances[i], nil
		}
	}
	return nil, nil
}

func (s *balanceStore) Latest(ctx context.Context, accountID string) (*models.Balance, error) {
	balances, err := s.ByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(balances) == 0 {
		return nil, nil
	}
	return &balances[len(balances)-1], nil
}
