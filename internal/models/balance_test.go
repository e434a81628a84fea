package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBalanceCheck(t *testing.T) {
	b := &Balance{
		AccountID:           "a1",
		Date:                MustDate("2025-01-10"),
		Currency:            "USD",
		StartCashBalance:    decimal.NewFromInt(1000),
		StartNonCashBalance: decimal.NewFromInt(500),
		CashInflows:         decimal.NewFromInt(200),
		CashOutflows:        decimal.NewFromInt(50),
		NetMarketFlows:      decimal.NewFromInt(25),
		FlowsFactor:         1,
	}
	b.CashBalance = decimal.NewFromInt(1150)    // 1000 + (200-50)*1
	b.NonCashBalance = decimal.NewFromInt(525)  // 500 + 25
	b.Balance = b.CashBalance.Add(b.NonCashBalance)

	assert.NoError(t, b.Check())

	// decomposition violation
	broken := *b
	broken.Balance = decimal.NewFromInt(9999)
	assert.Error(t, broken.Check())

	// equation violation
	broken = *b
	broken.CashBalance = decimal.NewFromInt(1200)
	broken.Balance = broken.CashBalance.Add(broken.NonCashBalance)
	assert.Error(t, broken.Check())
}

func TestBalanceCheckLiability(t *testing.T) {
	// A credit card payment is an outflow that reduces the owed balance, but
	// flows_factor -1 makes it increase the equation's signed effect.
	b := &Balance{
		AccountID:        "cc1",
		Date:             MustDate("2025-01-10"),
		Currency:         "USD",
		StartCashBalance: decimal.NewFromInt(800),
		CashInflows:      decimal.NewFromInt(100), // new spending (inflow to the debt)
		CashOutflows:     decimal.NewFromInt(300), // payment
		FlowsFactor:      -1,
	}
	b.CashBalance = decimal.NewFromInt(1000) // 800 + (100-300)*(-1)
	b.Balance = b.CashBalance

	assert.NoError(t, b.Check())
}

func TestBalanceKey(t *testing.T) {
	b := &Balance{AccountID: "a1", Date: MustDate("2025-01-10"), Currency: "USD"}
	assert.Equal(t, "a1|2025-01-10|USD", b.Key())
}
