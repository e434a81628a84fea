package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
)

// ReconciliationRequest asks for the account's balance on a date to be
// corrected to Balance. DryRun computes the result without persisting.
type ReconciliationRequest struct {
	AccountID string `validate:"required"`
	Date      models.Date
	Balance   decimal.Decimal
	DryRun    bool
}

// ReconciliationResult is the computed post-correction state for the date.
type ReconciliationResult struct {
	Balance        decimal.Decimal
	CashBalance    decimal.Decimal
	NonCashBalance decimal.Decimal

	// Entry is nil on a dry run.
	Entry   *models.Entry
	Created bool
}

// ReconciliationManager applies mid-timeline corrections: the date's non-cash
// component is held constant and the whole delta lands on cash.
type ReconciliationManager struct {
	accounts interfaces.AccountStore
	entries  interfaces.EntryStore
	balances interfaces.BalanceStore
	validate *validator.Validate
	logger   *common.Logger

	today func() models.Date
}

// NewReconciliationManager creates a reconciliation manager.
func NewReconciliationManager(storage interfaces.StorageManager, logger *common.Logger) *ReconciliationManager {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ReconciliationManager{
		accounts: storage.AccountStore(),
		entries:  storage.EntryStore(),
		balances: storage.BalanceStore(),
		validate: validator.New(),
		logger:   logger,
		today:    models.Today,
	}
}

// Reconcile corrects the account's balance on the requested date. An existing
// valuation on that date is updated in place; otherwise a reconciliation
// valuation is created.
func (m *ReconciliationManager) Reconcile(ctx context.Context, req ReconciliationRequest) (*ReconciliationResult, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid reconciliation request: %w", err)
	}
	if req.Date.IsZero() {
		return nil, &InvalidBalanceError{AccountID: req.AccountID, Reason: "date is required"}
	}
	if req.Date.After(m.today()) {
		return nil, &InvalidBalanceError{AccountID: req.AccountID, Reason: "date is in the future"}
	}

	account, err := m.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	nonCash, err := m.nonCashOn(ctx, account, req.Date)
	if err != nil {
		return nil, err
	}
	result := &ReconciliationResult{
		Balance:        req.Balance,
		CashBalance:    req.Balance.Sub(nonCash),
		NonCashBalance: nonCash,
	}

	if req.DryRun {
		return result, nil
	}

	now := time.Now().UTC()
	entry, err := m.entries.ValuationOnDate(ctx, account.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry = &models.Entry{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Date:      req.Date,
			Currency:  account.Currency,
			Kind:      models.EntryKindValuation,
			Name:      "Reconciliation",
			Valuation: &models.Valuation{Kind: models.ValuationKindReconciliation},
			CreatedAt: now,
		}
		result.Created = true
	}
	entry.Amount = req.Balance
	entry.Valuation.NonCashAmount = &nonCash
	entry.UpdatedAt = now

	if err := m.entries.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save reconciliation: %w", err)
	}
	result.Entry = entry

	m.logger.Info().
		Str("account_id", account.ID).
		Str("date", req.Date.String()).
		Str("balance", req.Balance.String()).
		Msg("Balance reconciled")
	return result, nil
}

// nonCashOn resolves the non-cash component to hold constant: the date's own
// balance row, else the prior day's, else the account's cached split.
func (m *ReconciliationManager) nonCashOn(ctx context.Context, account *models.Account, date models.Date) (decimal.Decimal, error) {
	if row, err := m.balances.OnDate(ctx, account.ID, date); err != nil {
		return decimal.Zero, err
	} else if row != nil {
		return row.NonCashBalance, nil
	}
	if row, err := m.balances.OnDate(ctx, account.ID, date.Add(-1)); err != nil {
		return decimal.Zero, err
	} else if row != nil {
		return row.NonCashBalance, nil
	}
	return account.Balance.Sub(account.CashBalance), nil
}
