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

// CurrentRequest asks for an account's present-day balance to be set.
type CurrentRequest struct {
	AccountID string `validate:"required"`
	Amount    decimal.Decimal
}

// CurrentResult reports what the manager did. Changed is false when the
// request was already satisfied and nothing was written.
type CurrentResult struct {
	Entry   *models.Entry
	Changed bool
}

// CurrentManager sets an account's balance as of today. The write strategy
// depends on the account: linked accounts get an idempotent current anchor;
// manual all-cash accounts with a clean timeline get their opening anchor
// shifted by the delta, keeping the ledger minimal; everything else gets a
// reconciliation valuation dated today.
type CurrentManager struct {
	accounts interfaces.AccountStore
	entries  interfaces.EntryStore
	balances interfaces.BalanceStore
	validate *validator.Validate
	logger   *common.Logger

	today func() models.Date
}

// NewCurrentManager creates a current balance manager.
func NewCurrentManager(storage interfaces.StorageManager, logger *common.Logger) *CurrentManager {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &CurrentManager{
		accounts: storage.AccountStore(),
		entries:  storage.EntryStore(),
		balances: storage.BalanceStore(),
		validate: validator.New(),
		logger:   logger,
		today:    models.Today,
	}
}

// Set applies the requested present-day balance.
func (m *CurrentManager) Set(ctx context.Context, req CurrentRequest) (*CurrentResult, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid current balance request: %w", err)
	}

	account, err := m.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if account.Linked {
		return m.setCurrentAnchor(ctx, account, req.Amount)
	}

	if account.CashModel() == models.CashModelCashOnly {
		reconciliations, err := m.entries.Reconciliations(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if len(reconciliations) == 0 {
			return m.adjustOpeningAnchor(ctx, account, req.Amount)
		}
	}

	return m.appendReconciliation(ctx, account, req.Amount)
}

// setCurrentAnchor idempotently creates or moves the current anchor to today.
func (m *CurrentManager) setCurrentAnchor(ctx context.Context, account *models.Account, amount decimal.Decimal) (*CurrentResult, error) {
	today := m.today()

	entries, err := m.entries.ByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	var anchor *models.Entry
	for i := range entries {
		if entries[i].ValuationKindOf() == models.ValuationKindCurrentAnchor {
			anchor = &entries[i]
			break
		}
	}

	if anchor != nil && anchor.Date == today && anchor.Amount.Equal(amount) {
		return &CurrentResult{Entry: anchor, Changed: false}, nil
	}

	now := time.Now().UTC()
	if anchor == nil {
		anchor = &models.Entry{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Currency:  account.Currency,
			Kind:      models.EntryKindValuation,
			Name:      "Current balance",
			Valuation: &models.Valuation{Kind: models.ValuationKindCurrentAnchor},
			CreatedAt: now,
		}
	}
	anchor.Date = today
	anchor.Amount = amount
	anchor.UpdatedAt = now

	if err := m.entries.Save(ctx, anchor); err != nil {
		return nil, fmt.Errorf("failed to save current anchor: %w", err)
	}
	return &CurrentResult{Entry: anchor, Changed: true}, nil
}

// adjustOpeningAnchor shifts the opening anchor by the exact delta needed so
// the forward-derived balance today lands on the requested amount. Used only
// for manual all-cash accounts whose timeline has no reconciliations.
func (m *CurrentManager) adjustOpeningAnchor(ctx context.Context, account *models.Account, amount decimal.Decimal) (*CurrentResult, error) {
	anchor, err := m.entries.OpeningAnchor(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		// Nothing to shift; a reconciliation today is the only correct write.
		return m.appendReconciliation(ctx, account, amount)
	}

	current := account.Balance
	if latest, err := m.balances.Latest(ctx, account.ID); err != nil {
		return nil, err
	} else if latest != nil {
		current = latest.Balance
	}

	delta := amount.Sub(current)
	if delta.IsZero() {
		return &CurrentResult{Entry: anchor, Changed: false}, nil
	}

	anchor.Amount = anchor.Amount.Add(delta)
	if anchor.Valuation.NonCashAmount != nil && account.CashModel() == models.CashModelCashOnly {
		zero := decimal.Zero
		anchor.Valuation.NonCashAmount = &zero
	}
	anchor.UpdatedAt = time.Now().UTC()

	if err := m.entries.Save(ctx, anchor); err != nil {
		return nil, fmt.Errorf("failed to adjust opening anchor: %w", err)
	}

	m.logger.Info().
		Str("account_id", account.ID).
		Str("delta", delta.String()).
		Msg("Opening anchor adjusted to match requested current balance")
	return &CurrentResult{Entry: anchor, Changed: true}, nil
}

func (m *CurrentManager) appendReconciliation(ctx context.Context, account *models.Account, amount decimal.Decimal) (*CurrentResult, error) {
	today := m.today()
	now := time.Now().UTC()

	entry, err := m.entries.ValuationOnDate(ctx, account.ID, today)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry = &models.Entry{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Date:      today,
			Currency:  account.Currency,
			Kind:      models.EntryKindValuation,
			Name:      "Balance update",
			Valuation: &models.Valuation{Kind: models.ValuationKindReconciliation},
			CreatedAt: now,
		}
	} else if entry.Amount.Equal(amount) {
		return &CurrentResult{Entry: entry, Changed: false}, nil
	}
	entry.Amount = amount
	entry.UpdatedAt = now

	if err := m.entries.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save reconciliation: %w", err)
	}
	return &CurrentResult{Entry: entry, Changed: true}, nil
}
