package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type accountStore struct {
	store  *Store
	logger *common.Logger
}

func newAccountStore(store *Store, logger *common.Logger) *accountStore {
	return &accountStore{store: store, logger: logger}
}

func (s *accountStore) Get(_ context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.store.db.Get(id, &account)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("account '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get account '%s': %w", id, err)
	}
	return &account, nil
}

func (s *accountStore) Save(_ context.Context, account *models.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account id is required")
	}
	if !models.ValidAccountType(account.Type) {
		return fmt.Errorf("invalid account type %q", account.Type)
	}

	account.UpdatedAt = time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.SyncStatus == "" {
		account.SyncStatus = models.SyncStatusPending
	}

	if err := s.store.db.Upsert(account.ID, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	s.logger.Debug().Str("id", account.ID).Str("name", account.Name).Msg("Account saved")
	return nil
}

func (s *accountStore) Delete(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.Account{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete account '%s': %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Account deleted")
	return nil
}

func (s *accountStore) List(_ context.Context) ([]*models.Account, error) {
	var accounts []models.Account
	if err := s.store.db.Find(&accounts, nil); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]*models.Account, len(accounts))
	for i := range accounts {
		out[i] = &accounts[i]
	}
	return out, nil
}

func (s *accountStore) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus, syncErr error) (*models.Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.ValidSyncTransition(account.SyncStatus, status) {
		return nil, fmt.Errorf("invalid sync transition %q -> %q for account '%s'",
			account.SyncStatus, status, id)
	}

	account.SyncStatus = status
	account.SyncError = ""
	switch status {
	case models.SyncStatusCompleted:
		account.LastSyncedAt = time.Now()
	case models.SyncStatusFailed:
		if syncErr != nil {
			account.SyncError = syncErr.Error()
		}
	}

	if err := s.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
