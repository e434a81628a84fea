// Package interfaces defines service contracts for Keel
package interfaces

import (
	"context"

	"github.com/keelfin/keel/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	AccountStore() AccountStore
	EntryStore() EntryStore
	BalanceStore() BalanceStore
	HoldingStore() HoldingStore
	SecurityStore() SecurityStore
	RateStore() RateStore

	// Lifecycle
	Close() error
}

// AccountStore manages account records.
type AccountStore interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Account, error)

	// UpdateSyncStatus transitions the account's sync status, enforcing the
	// pending -> syncing -> completed|failed state machine.
	UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus, syncErr error) (*models.Account, error)
}

// EntryStore provides ordered access to an account's ledger of valuations,
// transactions, and trades. Entries are the only mutable source of truth;
// balance and holding rows are derived from them.
type EntryStore interface {
	Get(ctx context.Context, id string) (*models.Entry, error)
	// Save upserts an entry, rejecting a second valuation on an
	// account/date that already has one.
	Save(ctx context.Context, entry *models.Entry) error
	Delete(ctx context.Context, id string) error

	// ByAccount returns all of an account's entries ordered by date.
	ByAccount(ctx context.Context, accountID string) ([]models.Entry, error)
	// ValuationOnDate returns the valuation entry for the account/date, or
	// nil when none exists.
	ValuationOnDate(ctx context.Context, accountID string, date models.Date) (*models.Entry, error)
	// OpeningAnchor returns the account's opening_anchor valuation, or nil.
	OpeningAnchor(ctx context.Context, accountID string) (*models.Entry, error)
	// Reconciliations returns the account's reconciliation valuations ordered by date.
	Reconciliations(ctx context.Context, accountID string) ([]models.Entry, error)
}

// BalanceStore persists derived daily balance rows.
type BalanceStore interface {
	// ReplaceRange atomically upserts the given rows and deletes any
	// existing row for the account whose date falls outside calculated.
	// The persisted set exactly mirrors calculator output afterwards.
	ReplaceRange(ctx context.Context, accountID string, rows []models.Balance, calculated models.DateRange) error

	ByAccount(ctx context.Context, accountID string) ([]models.Balance, error)
	OnDate(ctx context.Context, accountID string, date models.Date) (*models.Balance, error)
	Latest(ctx context.Context, accountID string) (*models.Balance, error)
}

// HoldingStore persists derived daily per-security holding rows.
type HoldingStore interface {
	ReplaceRange(ctx context.Context, accountID string, rows []models.Holding, calculated models.DateRange) error

	ByAccount(ctx context.Context, accountID string) ([]models.Holding, error)
	// LatestByAccount returns the most recent row per security: the
	// current-holdings snapshot consumed by reverse calculation.
	LatestByAccount(ctx context.Context, accountID string) ([]models.Holding, error)
}

// SecurityStore manages securities and their locally persisted price series.
type SecurityStore interface {
	GetSecurity(ctx context.Context, id string) (*models.Security, error)
	SaveSecurity(ctx context.Context, security *models.Security) error
	ListSecurities(ctx context.Context) ([]*models.Security, error)

	SavePrices(ctx context.Context, prices []models.SecurityPrice) error
	// PriceOnOrBefore returns the latest persisted price at or before date,
	// or nil when none exists.
	PriceOnOrBefore(ctx context.Context, securityID string, date models.Date) (*models.SecurityPrice, error)
	PricesInRange(ctx context.Context, securityID string, r models.DateRange) ([]models.SecurityPrice, error)
}

// RateStore manages locally persisted exchange rates.
type RateStore interface {
	SaveRates(ctx context.Context, rates []models.ExchangeRate) error
	// RateOnDate returns the rate for the exact date, or nil.
	RateOnDate(ctx context.Context, from, to string, date models.Date) (*models.ExchangeRate, error)
	// RateOnOrBefore returns the most recent rate at or before date, or nil.
	RateOnOrBefore(ctx context.Context, from, to string, date models.Date) (*models.ExchangeRate, error)
}
