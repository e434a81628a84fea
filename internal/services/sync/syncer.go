// Package sync orchestrates account balance reconstruction: direction
// selection, materialization, and the account sync state machine.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
	"github.com/keelfin/keel/internal/services/balance"
	"github.com/keelfin/keel/internal/services/holding"
)

const DefaultWorkers = 4

var _ interfaces.SyncService = (*Syncer)(nil)

// Syncer runs account syncs. Materialization of the same account is
// serialized behind a per-account lock; different accounts run in parallel.
type Syncer struct {
	accounts     interfaces.AccountStore
	forward      *balance.ForwardCalculator
	reverse      *balance.ReverseCalculator
	holdings     *holding.Calculator
	materializer *balance.Materializer
	logger       *common.Logger
	workers      int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncer creates a syncer. workers bounds SyncAll concurrency; values
// below one fall back to DefaultWorkers.
func NewSyncer(storage interfaces.StorageManager, forward *balance.ForwardCalculator, reverse *balance.ReverseCalculator, holdings *holding.Calculator, materializer *balance.Materializer, workers int, logger *common.Logger) *Syncer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Syncer{
		accounts:     storage.AccountStore(),
		forward:      forward,
		reverse:      reverse,
		holdings:     holdings,
		materializer: materializer,
		logger:       logger,
		workers:      workers,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Sync reconstructs and persists one account's balance history. The account
// moves pending|completed|failed -> syncing -> completed, or -> failed with
// the error recorded. A failure never leaves partial rows behind: the
// materializer replaces history atomically or not at all.
func (s *Syncer) Sync(ctx context.Context, accountID string) error {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}

	account, err = s.accounts.UpdateSyncStatus(ctx, account.ID, models.SyncStatusSyncing, nil)
	if err != nil {
		return fmt.Errorf("failed to start sync for account %s: %w", accountID, err)
	}

	s.logger.Info().
		Str("account_id", account.ID).
		Bool("linked", account.Linked).
		Msg("Account sync started")

	if syncErr := s.run(ctx, account); syncErr != nil {
		s.logger.Error().Err(syncErr).Str("account_id", account.ID).Msg("Account sync failed")
		if _, err := s.accounts.UpdateSyncStatus(ctx, account.ID, models.SyncStatusFailed, syncErr); err != nil {
			return errors.Join(syncErr, err)
		}
		return syncErr
	}

	if _, err := s.accounts.UpdateSyncStatus(ctx, account.ID, models.SyncStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to complete sync for account %s: %w", accountID, err)
	}
	s.logger.Info().Str("account_id", account.ID).Msg("Account sync completed")
	return nil
}

// SyncAll syncs every account, failures isolated per account: one account's
// error never stops the others. Returns the accumulated errors, if any.
func (s *Syncer) SyncAll(ctx context.Context) error {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	sem := make(chan struct{}, s.workers)
	errCh := make(chan error, len(accounts))
	var wg sync.WaitGroup
	for _, account := range accounts {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.Sync(ctx, id); err != nil {
				errCh <- fmt.Errorf("account %s: %w", id, err)
			}
		}(account.ID)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// run does the actual reconstruction while the account is in syncing state.
func (s *Syncer) run(ctx context.Context, account *models.Account) error {
	rows, err := s.calculate(ctx, account)
	if err != nil {
		return err
	}
	if err := s.materializer.Materialize(ctx, account, rows); err != nil {
		return err
	}

	if account.CashModel() == models.CashModelMixed && s.holdings != nil && len(rows) > 0 {
		r := models.NewDateRange(rows[0].Date, rows[len(rows)-1].Date)
		holdingRows, err := s.calculateHoldings(ctx, account, r)
		if err != nil {
			return err
		}
		if err := s.holdings.Materialize(ctx, account, holdingRows, r); err != nil {
			return err
		}
	}

	return s.refreshCachedBalance(ctx, account, rows)
}

// calculate picks the reconstruction direction: linked accounts trust the
// provider-reported current value and walk backward, manual accounts trust
// the ledger and walk forward from zero.
func (s *Syncer) calculate(ctx context.Context, account *models.Account) ([]models.Balance, error) {
	if account.Linked {
		return s.reverse.Calculate(ctx, account)
	}
	return s.forward.Calculate(ctx, account)
}

func (s *Syncer) calculateHoldings(ctx context.Context, account *models.Account, r models.DateRange) ([]models.Holding, error) {
	if account.Linked {
		return s.holdings.CalculateReverse(ctx, account, r)
	}
	return s.holdings.CalculateForward(ctx, account, r)
}

// refreshCachedBalance copies the newest row's totals onto the account record.
func (s *Syncer) refreshCachedBalance(ctx context.Context, account *models.Account, rows []models.Balance) error {
	if len(rows) == 0 {
		return nil
	}
	last := rows[len(rows)-1]
	account.Balance = last.Balance
	account.CashBalance = last.CashBalance
	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("failed to refresh cached balance for account %s: %w", account.ID, err)
	}
	return nil
}

func (s *Syncer) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}
