package balance

import (
	"context"
	"fmt"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
)

// Materializer persists calculator output, replacing the account's balance
// history wholesale so the stored rows exactly mirror the calculated set.
type Materializer struct {
	balances interfaces.BalanceStore
	logger   *common.Logger
}

// NewMaterializer creates a materializer.
func NewMaterializer(storage interfaces.StorageManager, logger *common.Logger) *Materializer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Materializer{
		balances: storage.BalanceStore(),
		logger:   logger,
	}
}

// Materialize atomically upserts the rows and purges any persisted row for
// the account outside the calculated range. Rows must be date-ordered, as
// produced by the calculators. An empty set clears the account's history.
func (m *Materializer) Materialize(ctx context.Context, account *models.Account, rows []models.Balance) error {
	r := models.DateRange{}
	if len(rows) > 0 {
		r.Start = rows[0].Date
		r.End = rows[len(rows)-1].Date
	}
	if err := m.balances.ReplaceRange(ctx, account.ID, rows, r); err != nil {
		return fmt.Errorf("failed to materialize balances for account %s: %w", account.ID, err)
	}
	m.logger.Debug().
		Str("account_id", account.ID).
		Int("rows", len(rows)).
		Msg("Materialized balance rows")
	return nil
}
