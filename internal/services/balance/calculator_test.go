package balance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
	"github.com/keelfin/keel/internal/services/holding"
	"github.com/keelfin/keel/internal/storage/badger"
)

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	manager, err := badger.NewManager(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func saveAccount(t *testing.T, storage interfaces.StorageManager, acct *models.Account) {
	t.Helper()
	require.NoError(t, storage.AccountStore().Save(context.Background(), acct))
}

func saveEntries(t *testing.T, storage interfaces.StorageManager, entries ...models.Entry) {
	t.Helper()
	for i := range entries {
		require.NoError(t, storage.EntryStore().Save(context.Background(), &entries[i]))
	}
}

func fixedToday(date string) func() models.Date {
	d := models.MustDate(date)
	return func() models.Date { return d }
}

func balancesOf(rows []models.Balance) []string {
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = rows[i].Balance.String()
	}
	return out
}

// Zero start, a valuation of 17000 four days ago and one of 19000 two days
// ago: the six-day window fills the gaps by carrying forward.
func TestForwardCalculator_ValuationsOnly(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)
	saveAccount(t, storage, acct)
	saveEntries(t, storage,
		valuation("2025-06-06", "17000", models.ValuationKindReconciliation),
		valuation("2025-06-08", "19000", models.ValuationKindReconciliation),
	)

	calc := NewForwardCalculator(storage, nil, nil, nil)
	calc.today = fixedToday("2025-06-10")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "17000", "17000", "19000", "19000", "19000"}, balancesOf(rows))
	assert.Equal(t, models.MustDate("2025-06-05"), rows[0].Date)
	for i := range rows {
		assert.NoError(t, rows[i].Check(), "row %s", rows[i].Date)
	}
}

func TestForwardCalculator_NoEntriesYieldsSingleZeroRow(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)
	saveAccount(t, storage, acct)

	calc := NewForwardCalculator(storage, nil, nil, nil)
	calc.today = fixedToday("2025-06-10")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Balance.IsZero())
}

// Current anchor of 20000 today, opening anchor of 15000 four days ago, one
// transaction of 100 two days ago.
func TestReverseCalculator_AnchorsAndTransaction(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)
	acct.Linked = true
	saveAccount(t, storage, acct)

	opening := valuation("2025-06-06", "15000", models.ValuationKindOpeningAnchor)
	current := valuation("2025-06-10", "20000", models.ValuationKindCurrentAnchor)
	saveEntries(t, storage, opening, transaction("2025-06-08", "100"), current)

	calc := NewReverseCalculator(storage, nil, nil, nil)
	calc.today = fixedToday("2025-06-10")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"15000", "20100", "20000", "20000", "20000"}, balancesOf(rows))
	assert.True(t, rows[1].StartCashBalance.Equal(dec("20100")))
	assert.True(t, rows[2].StartCashBalance.Equal(dec("20100")), "transaction day opens at 20100")
	for i := range rows {
		assert.NoError(t, rows[i].Check(), "row %s", rows[i].Date)
	}
}

func TestReverseCalculator_SeedsFromCachedBalanceWithoutAnchor(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)
	acct.Linked = true
	acct.Balance = dec("300")
	saveAccount(t, storage, acct)
	saveEntries(t, storage, transaction("2025-06-04", "-100"))

	calc := NewReverseCalculator(storage, nil, nil, nil)
	calc.today = fixedToday("2025-06-06")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"300", "300", "300"}, balancesOf(rows))
	assert.True(t, rows[0].StartCashBalance.Equal(dec("200")), "income of 100 undone")
}

// Reconciliations are user assertions, not authoritative truth: reverse
// reconstruction must ignore them entirely.
func TestReverseCalculator_IgnoresReconciliations(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)
	acct.Linked = true
	acct.Balance = dec("500")
	saveAccount(t, storage, acct)
	saveEntries(t, storage,
		transaction("2025-06-04", "-100"),
		valuation("2025-06-05", "9999", models.ValuationKindReconciliation),
	)

	calc := NewReverseCalculator(storage, nil, nil, nil)
	calc.today = fixedToday("2025-06-06")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	for i := range rows {
		assert.False(t, rows[i].Balance.Equal(dec("9999")), "reconciliation leaked into %s", rows[i].Date)
	}
}

// A reconciliation dated before the opening anchor can never be reached by
// the backward walk; it is skipped rather than treated as an error.
func TestReverseCalculator_ReconciliationBeforeOpeningAnchorIsSkipped(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)
	acct.Linked = true
	saveAccount(t, storage, acct)
	saveEntries(t, storage,
		valuation("2025-06-02", "1234", models.ValuationKindReconciliation),
		valuation("2025-06-06", "15000", models.ValuationKindOpeningAnchor),
		valuation("2025-06-10", "20000", models.ValuationKindCurrentAnchor),
	)

	calc := NewReverseCalculator(storage, nil, nil, nil)
	calc.today = fixedToday("2025-06-10")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	require.Len(t, rows, 5, "history starts at the opening anchor")
	assert.Equal(t, models.MustDate("2025-06-06"), rows[0].Date)
	assert.True(t, rows[0].Balance.Equal(dec("15000")))
}

// Seeding reverse with the forward-derived total must reproduce forward's
// balance on every shared date.
func TestForwardReverse_Consistency(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)
	saveAccount(t, storage, acct)
	saveEntries(t, storage,
		transaction("2025-06-02", "-500"),
		transaction("2025-06-04", "200"),
	)

	forward := NewForwardCalculator(storage, nil, nil, nil)
	forward.today = fixedToday("2025-06-06")
	forwardRows, err := forward.Calculate(context.Background(), acct)
	require.NoError(t, err)

	acct.Balance = forwardRows[len(forwardRows)-1].Balance
	reverse := NewReverseCalculator(storage, nil, nil, nil)
	reverse.today = fixedToday("2025-06-06")
	reverseRows, err := reverse.Calculate(context.Background(), acct)
	require.NoError(t, err)

	byDate := make(map[models.Date]models.Balance)
	for _, row := range forwardRows {
		byDate[row.Date] = row
	}
	require.NotEmpty(t, reverseRows)
	for _, row := range reverseRows {
		forwardRow, ok := byDate[row.Date]
		require.True(t, ok, "forward missing %s", row.Date)
		assert.True(t, row.Balance.Equal(forwardRow.Balance),
			"%s: reverse %s != forward %s", row.Date, row.Balance, forwardRow.Balance)
	}
}

func TestForwardCalculator_MixedHoldingsOverride(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeInvestment)
	saveAccount(t, storage, acct)
	saveEntries(t, storage, trade("2025-06-02", "1000"))
	require.NoError(t, storage.SecurityStore().SavePrices(context.Background(), []models.SecurityPrice{
		{SecurityID: "AAPL", Date: models.MustDate("2025-06-02"), Price: dec("100"), Currency: "USD"},
		{SecurityID: "AAPL", Date: models.MustDate("2025-06-03"), Price: dec("105"), Currency: "USD"},
	}))

	holdings := holding.NewCalculator(storage, nil, nil)
	calc := NewForwardCalculator(storage, nil, holdings, nil)
	calc.today = fixedToday("2025-06-03")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Buy day: 1000 moves from cash to holdings, total unchanged.
	buyDay := rows[1]
	assert.True(t, buyDay.CashBalance.Equal(dec("-1000")))
	assert.True(t, buyDay.NonCashBalance.Equal(dec("1000")))
	assert.True(t, buyDay.Balance.IsZero())
	assert.True(t, buyDay.NetMarketFlows.IsZero())

	// Next day the price moves 100 -> 105: the 50 gain is market flow.
	gainDay := rows[2]
	assert.True(t, gainDay.NonCashBalance.Equal(dec("1050")))
	assert.True(t, gainDay.NetMarketFlows.Equal(dec("50")))
	assert.True(t, gainDay.Balance.Equal(dec("50")))
	for i := range rows {
		assert.NoError(t, rows[i].Check(), "row %s", rows[i].Date)
	}
}

func TestReverseCalculator_MixedCashIsTotalMinusHoldings(t *testing.T) {
	storage := newTestStorage(t)
	acct := account(models.ClassificationAsset, models.AccountTypeInvestment)
	acct.Linked = true
	acct.Balance = dec("7000")
	saveAccount(t, storage, acct)
	saveEntries(t, storage, transaction("2025-06-02", "-200"))
	require.NoError(t, storage.SecurityStore().SavePrices(context.Background(), []models.SecurityPrice{
		{SecurityID: "AAPL", Date: models.MustDate("2025-06-02"), Price: dec("100"), Currency: "USD"},
		{SecurityID: "AAPL", Date: models.MustDate("2025-06-03"), Price: dec("105"), Currency: "USD"},
	}))
	// Provider-reported current position with no trade history at all.
	require.NoError(t, storage.HoldingStore().ReplaceRange(context.Background(), acct.ID, []models.Holding{{
		AccountID:  acct.ID,
		SecurityID: "AAPL",
		Date:       models.MustDate("2025-06-03"),
		Currency:   "USD",
		Quantity:   dec("10"),
		Price:      dec("105"),
		Amount:     dec("1050"),
	}}, models.NewDateRange(models.MustDate("2025-06-03"), models.MustDate("2025-06-03"))))

	holdings := holding.NewCalculator(storage, nil, nil)
	calc := NewReverseCalculator(storage, nil, holdings, nil)
	calc.today = fixedToday("2025-06-03")

	rows, err := calc.Calculate(context.Background(), acct)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[1].Balance.Equal(dec("7000")), "provider total preserved exactly")
	assert.True(t, rows[1].NonCashBalance.Equal(dec("1050")))
	assert.True(t, rows[1].CashBalance.Equal(dec("5950")))
	assert.True(t, rows[0].NonCashBalance.Equal(dec("1000")), "snapshot carried back over the price change")
	for i := range rows {
		assert.NoError(t, rows[i].Check(), "row %s", rows[i].Date)
	}
}
