package riskrule

import (
	"errors"

	"github.com/joripage/crossbook/pkg/oms/model"
	"github.com/shopspring/decimal"
)

var ErrRiskViolation = errors.New("risk rule violation")

type RiskRule interface {
	Check(order *model.AddOrder) error
}

type Config struct {
	TickSizes   []TickSizeBand  `yaml:"tick_sizes"`
	PriceFloor  decimal.Decimal `yaml:"price_floor"`
	PriceCeil   decimal.Decimal `yaml:"price_ceil"`
	MaxQuantity decimal.Decimal `yaml:"max_quantity"`
}

// NewRules builds the rules a config enables. Zero values disable a rule.
func NewRules(cfg Config) []RiskRule {
	var rules []RiskRule
	if len(cfg.TickSizes) > 0 {
		rules = append(rules, NewTickSizeRule(cfg.TickSizes))
	}
	if cfg.PriceFloor.IsPositive() || cfg.PriceCeil.IsPositive() {
		rules = append(rules, &PriceBandRule{Floor: cfg.PriceFloor, Ceil: cfg.PriceCeil})
	}
	if cfg.MaxQuantity.IsPositive() {
		rules = append(rules, &MaxQuantityRule{Max: cfg.MaxQuantity})
	}
	return rules
}

// referencePrice is the price a rule judges: the limit price, or the trigger
// for stops. Market orders carry none.
func referencePrice(order *model.AddOrder) (decimal.Decimal, bool) {
	switch order.Type {
	case model.OrderTypeLimit:
		return order.Price, true
	case model.OrderTypeStop:
		return order.StopPrice, true
	}
	return decimal.Zero, false
}
