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

// OpeningRequest asks for an account's opening anchor to be created or moved.
// CashAmount is optional; when absent the split is derived from the account
// type (cash-only all cash, non-cash-only and loan all non-cash, mixed all
// cash on the assumption of no holdings yet).
type OpeningRequest struct {
	AccountID  string `validate:"required"`
	Date       models.Date
	Amount     decimal.Decimal
	CashAmount *decimal.Decimal
}

// OpeningManager owns the opening_anchor valuation. Anchors are never written
// directly; all changes go through here.
type OpeningManager struct {
	accounts interfaces.AccountStore
	entries  interfaces.EntryStore
	validate *validator.Validate
	logger   *common.Logger
}

// NewOpeningManager creates an opening balance manager.
func NewOpeningManager(storage interfaces.StorageManager, logger *common.Logger) *OpeningManager {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &OpeningManager{
		accounts: storage.AccountStore(),
		entries:  storage.EntryStore(),
		validate: validator.New(),
		logger:   logger,
	}
}

// Set creates the account's opening anchor, or updates it in place when one
// already exists.
func (m *OpeningManager) Set(ctx context.Context, req OpeningRequest) (*models.Entry, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid opening balance request: %w", err)
	}
	if req.Date.IsZero() {
		return nil, &InvalidBalanceError{AccountID: req.AccountID, Reason: "date is required"}
	}

	account, err := m.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	cash, err := m.resolveCash(account, req)
	if err != nil {
		return nil, err
	}
	nonCash := req.Amount.Sub(cash)

	now := time.Now().UTC()
	anchor, err := m.entries.OpeningAnchor(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		anchor = &models.Entry{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Currency:  account.Currency,
			Kind:      models.EntryKindValuation,
			Name:      "Opening balance",
			Valuation: &models.Valuation{Kind: models.ValuationKindOpeningAnchor},
			CreatedAt: now,
		}
	}
	anchor.Date = req.Date
	anchor.Amount = req.Amount
	anchor.Valuation.NonCashAmount = &nonCash
	anchor.UpdatedAt = now

	if err := m.entries.Save(ctx, anchor); err != nil {
		return nil, fmt.Errorf("failed to save opening anchor: %w", err)
	}

	m.logger.Info().
		Str("account_id", account.ID).
		Str("date", req.Date.String()).
		Str("amount", req.Amount.String()).
		Msg("Opening anchor set")
	return anchor, nil
}

func (m *OpeningManager) resolveCash(account *models.Account, req OpeningRequest) (decimal.Decimal, error) {
	if req.CashAmount != nil {
		if req.CashAmount.GreaterThan(req.Amount) {
			return decimal.Zero, &InvalidBalanceError{
				AccountID: account.ID,
				Reason:    fmt.Sprintf("cash component %s exceeds total %s", req.CashAmount, req.Amount),
			}
		}
		if req.CashAmount.IsNegative() {
			return decimal.Zero, &InvalidBalanceError{AccountID: account.ID, Reason: "cash component is negative"}
		}
		return *req.CashAmount, nil
	}
	switch account.CashModel() {
	case models.CashModelNonCashOnly, models.CashModelNonCashWithPayments:
		return decimal.Zero, nil
	default:
		// Cash-only accounts hold everything in cash; mixed accounts are
		// assumed to start with no holdings.
		return req.Amount, nil
	}
}
