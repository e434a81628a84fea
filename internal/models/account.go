// Package models defines data structures for Keel
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification determines which side of the net-worth ledger an account
// sits on, and therefore the sign of its flows.
type Classification string

const (
	ClassificationAsset     Classification = "asset"
	ClassificationLiability Classification = "liability"
)

// AccountType identifies the kind of account being tracked.
type AccountType string

const (
	AccountTypeDepository     AccountType = "depository"
	AccountTypeCredit         AccountType = "credit"
	AccountTypeLoan           AccountType = "loan"
	AccountTypeProperty       AccountType = "property"
	AccountTypeVehicle        AccountType = "vehicle"
	AccountTypeOtherAsset     AccountType = "other_asset"
	AccountTypeOtherLiability AccountType = "other_liability"
	AccountTypeInvestment     AccountType = "investment"
	AccountTypeCrypto         AccountType = "crypto"
)

// validAccountTypes lists all accepted account types.
var validAccountTypes = map[AccountType]bool{
	AccountTypeDepository:     true,
	AccountTypeCredit:         true,
	AccountTypeLoan:           true,
	AccountTypeProperty:       true,
	AccountTypeVehicle:        true,
	AccountTypeOtherAsset:     true,
	AccountTypeOtherLiability: true,
	AccountTypeInvestment:     true,
	AccountTypeCrypto:         true,
}

// ValidAccountType returns true if t is a valid account type.
func ValidAccountType(t AccountType) bool {
	return validAccountTypes[t]
}

// CashModel determines how an account's balance splits between its cash
// and non-cash components, and which entries move which component.
type CashModel string

const (
	// CashModelCashOnly: the whole balance is cash; transactions move it directly.
	CashModelCashOnly CashModel = "cash_only"
	// CashModelNonCashOnly: the whole balance is non-cash; transactions are
	// recorded for display but never move the balance.
	CashModelNonCashOnly CashModel = "non_cash_only"
	// CashModelNonCashWithPayments: the whole balance is non-cash, but
	// transactions (loan payments) move it.
	CashModelNonCashWithPayments CashModel = "non_cash_with_payments"
	// CashModelMixed: balance is cash plus security holdings.
	CashModelMixed CashModel = "mixed"
)

// SyncStatus tracks the lifecycle of an account's balance sync.
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusSyncing   SyncStatus = "syncing"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// ValidSyncTransition returns true if an account may move from one sync
// status to another. Calculation only ever runs while status is syncing.
func ValidSyncTransition(from, to SyncStatus) bool {
	switch to {
	case SyncStatusSyncing:
		return from != SyncStatusSyncing
	case SyncStatusCompleted, SyncStatusFailed:
		return from == SyncStatusSyncing
	case SyncStatusPending:
		return true
	default:
		return false
	}
}

// Account represents a tracked financial account. It is a plain data
// holder: all balance and holding behavior lives in the services that
// consume it.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Classification Classification  `json:"classification"`
	Type           AccountType     `json:"type"`
	Currency       string          `json:"currency"`
	Linked         bool            `json:"linked"` // provider-synced; balance history reconstructed in reverse
	Balance        decimal.Decimal `json:"balance"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	SyncStatus     SyncStatus      `json:"sync_status"`
	SyncError      string          `json:"sync_error,omitempty"`
	LastSyncedAt   time.Time       `json:"last_synced_at,omitzero"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CashModel returns the cash model implied by the account type.
func (a *Account) CashModel() CashModel {
	switch a.Type {
	case AccountTypeDepository, AccountTypeCredit:
		return CashModelCashOnly
	case AccountTypeLoan:
		return CashModelNonCashWithPayments
	case AccountTypeInvestment, AccountTypeCrypto:
		return CashModelMixed
	default:
		return CashModelNonCashOnly
	}
}

// FlowsFactor converts a flow's natural signed-amount convention into its
// directional effect on the account balance: +1 for assets, -1 for liabilities.
func (a *Account) FlowsFactor() decimal.Decimal {
	if a.Classification == ClassificationLiability {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}
