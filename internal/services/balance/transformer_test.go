package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/keelfin/keel/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func account(classification models.Classification, accountType models.AccountType) *models.Account {
	return &models.Account{
		ID:             "acct-1",
		Name:           "Test",
		Classification: classification,
		Type:           accountType,
		Currency:       "USD",
	}
}

func transaction(date, amount string) models.Entry {
	return models.Entry{
		ID:        "e-" + date + "-" + amount,
		AccountID: "acct-1",
		Date:      models.MustDate(date),
		Amount:    dec(amount),
		Currency:  "USD",
		Kind:      models.EntryKindTransaction,
	}
}

func valuation(date, amount string, kind models.ValuationKind) models.Entry {
	return models.Entry{
		ID:        "v-" + date,
		AccountID: "acct-1",
		Date:      models.MustDate(date),
		Amount:    dec(amount),
		Currency:  "USD",
		Kind:      models.EntryKindValuation,
		Valuation: &models.Valuation{Kind: kind},
	}
}

func trade(date, amount string) models.Entry {
	qty := dec(amount).Div(dec("100"))
	return models.Entry{
		ID:        "t-" + date,
		AccountID: "acct-1",
		Date:      models.MustDate(date),
		Amount:    dec(amount),
		Currency:  "USD",
		Kind:      models.EntryKindTrade,
		Trade:     &models.Trade{SecurityID: "AAPL", Quantity: qty, Price: dec("100")},
	}
}

func TestForward_CashOnlyTransactions(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)

	// An income of 500 (inflow) and a spend of 200.
	result := tr.Forward(acct, ForwardInput{
		StartCash: dec("1000"),
		Entries:   []models.Entry{transaction("2025-06-02", "-500"), transaction("2025-06-02", "200")},
	})

	assert.True(t, result.EndCash.Equal(dec("1300")))
	assert.True(t, result.EndNonCash.IsZero())
	assert.True(t, result.Flows.CashInflows.Equal(dec("500")))
	assert.True(t, result.Flows.CashOutflows.Equal(dec("200")))
}

func TestForward_LiabilityFlowsInvert(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationLiability, models.AccountTypeCredit)

	// Inflow of 50 against factor -1 lowers the owed balance.
	result := tr.Forward(acct, ForwardInput{
		StartCash: dec("100"),
		Entries:   []models.Entry{transaction("2025-06-02", "-50")},
	})

	assert.True(t, result.EndCash.Equal(dec("50")), "got %s", result.EndCash)
}

func TestForward_NonCashOnlyIgnoresTransactions(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationAsset, models.AccountTypeProperty)

	result := tr.Forward(acct, ForwardInput{
		StartNonCash: dec("300000"),
		Entries:      []models.Entry{transaction("2025-06-02", "-1500")},
	})

	assert.True(t, result.EndNonCash.Equal(dec("300000")), "transactions never move a non-cash-only balance")
	assert.True(t, result.EndCash.IsZero())
}

func TestForward_LoanPaymentsMoveNonCash(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationLiability, models.AccountTypeLoan)

	// A payment reduces owed principal: outflow of 400 with factor -1.
	result := tr.Forward(acct, ForwardInput{
		StartNonCash: dec("10000"),
		Entries:      []models.Entry{transaction("2025-06-02", "400")},
	})

	assert.True(t, result.EndNonCash.Equal(dec("10400")), "got %s", result.EndNonCash)
}

func TestForward_MixedTradePreservesTotal(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationAsset, models.AccountTypeInvestment)

	// A buy of 1000 moves value from cash to holdings.
	result := tr.Forward(acct, ForwardInput{
		StartCash:    dec("5000"),
		StartNonCash: dec("2000"),
		Entries:      []models.Entry{trade("2025-06-02", "1000")},
	})

	assert.True(t, result.EndCash.Equal(dec("4000")))
	assert.True(t, result.EndNonCash.Equal(dec("3000")))
	assert.True(t, result.EndTotal().Equal(dec("7000")), "a trade alone never moves the total")
}

func TestForward_MixedHoldingsOverrideRecordsMarketFlows(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationAsset, models.AccountTypeInvestment)

	holdings := dec("3150")
	result := tr.Forward(acct, ForwardInput{
		StartCash:     dec("4000"),
		StartNonCash:  dec("3000"),
		HoldingsValue: &holdings,
	})

	assert.True(t, result.EndNonCash.Equal(dec("3150")))
	assert.True(t, result.NetMarketFlows.Equal(dec("150")), "price movement, not a flow")
	assert.True(t, result.EndCash.Equal(dec("4000")))
}

func TestForward_ValuationForcesBalance(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)

	result := tr.Forward(acct, ForwardInput{
		StartCash: dec("1000"),
		Entries:   []models.Entry{valuation("2025-06-02", "1700", models.ValuationKindReconciliation)},
	})

	assert.True(t, result.EndCash.Equal(dec("1700")))
	assert.True(t, result.CashAdjustments.Equal(dec("700")), "residual recorded as adjustment")
}

func TestReverse_SolvesStartFromEnd(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationAsset, models.AccountTypeDepository)

	result := tr.Reverse(acct, ReverseInput{
		EndTotal: dec("20000"),
		Entries:  []models.Entry{transaction("2025-06-02", "100")},
	})

	assert.True(t, result.StartCash.Equal(dec("20100")))
	assert.True(t, result.EndCash.Equal(dec("20000")))
}

func TestReverse_MixedSplitsCashAsTotalMinusHoldings(t *testing.T) {
	tr := NewTransformer()
	acct := account(models.ClassificationAsset, models.AccountTypeInvestment)

	priorHoldings := dec("2900")
	result := tr.Reverse(acct, ReverseInput{
		EndTotal:     dec("7000"),
		EndNonCash:   dec("3000"),
		StartNonCash: &priorHoldings,
	})

	assert.True(t, result.EndCash.Equal(dec("4000")))
	assert.True(t, result.StartCash.Equal(dec("4100")), "cash compensates so the total is preserved")
	assert.True(t, result.NetMarketFlows.Equal(dec("100")))
}

func TestBothDirections_SatisfyRowEquation(t *testing.T) {
	tr := NewTransformer()
	for _, acct := range []*models.Account{
		account(models.ClassificationAsset, models.AccountTypeDepository),
		account(models.ClassificationLiability, models.AccountTypeCredit),
		account(models.ClassificationLiability, models.AccountTypeLoan),
		account(models.ClassificationAsset, models.AccountTypeInvestment),
	} {
		entries := []models.Entry{transaction("2025-06-02", "-250"), transaction("2025-06-02", "75")}

		forward := tr.Forward(acct, ForwardInput{StartCash: dec("500"), StartNonCash: dec("100"), Entries: entries})
		row := buildRow(acct, models.MustDate("2025-06-02"), forward)
		assert.NoError(t, row.Check(), "forward %s", acct.Type)

		reverse := tr.Reverse(acct, ReverseInput{EndTotal: forward.EndTotal(), EndNonCash: forward.EndNonCash, Entries: entries})
		row = buildRow(acct, models.MustDate("2025-06-02"), reverse)
		assert.NoError(t, row.Check(), "reverse %s", acct.Type)
	}
}
