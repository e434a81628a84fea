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

type entryStore struct {
	store  *Store
	logger *common.Logger
}

func newEntryStore(store *Store, logger *common.Logger) *entryStore {
	return &entryStore{store: store, logger: logger}
}

func (s *entryStore) Get(_ context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	err := s.store.db.Get(id, &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("entry '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get entry '%s': %w", id, err)
	}
	return &entry, nil
}

func (s *entryStore) Save(ctx context.Context, entry *models.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}
	if entry.ID == "" {
		return fmt.Errorf("entry id is required")
	}

	// At most one valuation per account per calendar day.
	if entry.Kind == models.EntryKindValuation {
		existing, err := s.ValuationOnDate(ctx, entry.AccountID, entry.Date)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != entry.ID {
			return fmt.Errorf("account '%s' already has a valuation on %s", entry.AccountID, entry.Date)
		}
	}

	entry.UpdatedAt = time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := s.store.db.Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	s.logger.Debug().
		Str("id", entry.ID).
		Str("account", entry.AccountID).
		Str("kind", string(entry.Kind)).
		Str("date", entry.Date.String()).
		Msg("Entry saved")
	return nil
}

func (s *entryStore) Delete(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.Entry{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete entry '%s': %w", id, err)
	}
	return nil
}

func (s *entryStore) ByAccount(_ context.Context, accountID string) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.store.db.Find(&entries, badgerhold.Where("AccountID").Eq(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for account '%s': %w", accountID, err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

func (s *entryStore) ValuationOnDate(ctx context.Context, accountID string, date models.Date) (*models.Entry, error) {
	entries, err := s.ByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Kind == models.EntryKindValuation && entries[i].Date == date {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func (s *entryStore) OpeningAnchor(ctx context.Context, accountID string) (*models.Entry, error) {
	entries, err := s.ByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ValuationKindOf() == models.ValuationKindOpeningAnchor {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func (s *entryStore) Reconciliations(ctx context.Context, accountID string) ([]models.Entry, error) {
	entries, err := s.ByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var out []models.Entry
	for i := range entries {
		if entries[i].ValuationKindOf() == models.ValuationKindReconciliation {
			out = append(out, entries[i])
		}
	}
	return out, nil
}
