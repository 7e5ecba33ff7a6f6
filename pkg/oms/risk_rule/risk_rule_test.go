package riskrule

import (
	"testing"

	"github.com/joripage/crossbook/pkg/oms/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func limitOrder(price, qty string) *model.AddOrder {
	return &model.AddOrder{
		OrderID:  1,
		Account:  "alice",
		Side:     model.OrderSideBuy,
		Type:     model.OrderTypeLimit,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func TestTickSizeRule(t *testing.T) {
	rule := NewTickSizeRule([]TickSizeBand{
		{Step: decimal.RequireFromString("1")},
		{MaxPrice: decimal.RequireFromString("10"), Step: decimal.RequireFromString("0.01")},
		{MaxPrice: decimal.RequireFromString("100"), Step: decimal.RequireFromString("0.05")},
	})

	tests := []struct {
		price string
		ok    bool
	}{
		{"9.99", true},
		{"10", true},
		{"10.01", false},
		{"50.05", true},
		{"100.00", true},
		{"100.5", false},
		{"250", true},
	}
	for _, tt := range tests {
		err := rule.Check(limitOrder(tt.price, "1"))
		if tt.ok {
			assert.NoError(t, err, tt.price)
		} else {
			assert.ErrorIs(t, err, ErrRiskViolation, tt.price)
		}
	}

	market := limitOrder("0", "1")
	market.Type = model.OrderTypeMarket
	assert.NoError(t, rule.Check(market))

	stop := limitOrder("0", "1")
	stop.Type = model.OrderTypeStop
	stop.StopPrice = decimal.RequireFromString("10.015")
	assert.ErrorIs(t, rule.Check(stop), ErrRiskViolation)
}

func TestPriceBandRule(t *testing.T) {
	rule := &PriceBandRule{Floor: decimal.NewFromInt(90), Ceil: decimal.NewFromInt(110)}

	assert.NoError(t, rule.Check(limitOrder("90", "1")))
	assert.NoError(t, rule.Check(limitOrder("110", "1")))
	assert.ErrorIs(t, rule.Check(limitOrder("89.99", "1")), ErrRiskViolation)
	assert.ErrorIs(t, rule.Check(limitOrder("110.01", "1")), ErrRiskViolation)
}

func TestMaxQuantityRule(t *testing.T) {
	rule := &MaxQuantityRule{Max: decimal.NewFromInt(1000)}
	assert.NoError(t, rule.Check(limitOrder("1", "1000")))
	assert.ErrorIs(t, rule.Check(limitOrder("1", "1000.5")), ErrRiskViolation)
}

func TestNewRules(t *testing.T) {
	assert.Empty(t, NewRules(Config{}))

	rules := NewRules(Config{
		TickSizes:   []TickSizeBand{{Step: decimal.NewFromInt(1)}},
		PriceCeil:   decimal.NewFromInt(500),
		MaxQuantity: decimal.NewFromInt(10),
	})
	assert.Len(t, rules, 3)
}
