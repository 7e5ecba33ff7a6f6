package riskrule

import (
	"fmt"
	"sort"

	"github.com/joripage/crossbook/pkg/oms/model"
	"github.com/shopspring/decimal"
)

// TickSizeBand applies Step to prices up to MaxPrice. A zero MaxPrice has no
// upper limit.
type TickSizeBand struct {
	MaxPrice decimal.Decimal `yaml:"max_price"`
	Step     decimal.Decimal `yaml:"step"`
}

type TickSizeRule struct {
	bands []TickSizeBand
}

func NewTickSizeRule(bands []TickSizeBand) *TickSizeRule {
	sorted := append([]TickSizeBand(nil), bands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].MaxPrice, sorted[j].MaxPrice
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.LessThan(b)
	})
	return &TickSizeRule{bands: sorted}
}

func (r *TickSizeRule) Check(order *model.AddOrder) error {
	price, ok := referencePrice(order)
	if !ok {
		return nil
	}

	for _, band := range r.bands {
		if band.MaxPrice.IsZero() || price.LessThanOrEqual(band.MaxPrice) {
			if band.Step.IsPositive() && !price.Mod(band.Step).IsZero() {
				return fmt.Errorf("%w: price %s is not a multiple of tick %s", ErrRiskViolation, price, band.Step)
			}
			return nil
		}
	}

	return nil
}

type PriceBandRule struct {
	Floor decimal.Decimal
	Ceil  decimal.Decimal
}

func (r *PriceBandRule) Check(order *model.AddOrder) error {
	price, ok := referencePrice(order)
	if !ok {
		return nil
	}
	if r.Ceil.IsPositive() && price.GreaterThan(r.Ceil) {
		return fmt.Errorf("%w: price %s above ceiling %s", ErrRiskViolation, price, r.Ceil)
	}
	if r.Floor.IsPositive() && price.LessThan(r.Floor) {
		return fmt.Errorf("%w: price %s below floor %s", ErrRiskViolation, price, r.Floor)
	}
	return nil
}

type MaxQuantityRule struct {
	Max decimal.Decimal
}

func (r *MaxQuantityRule) Check(order *model.AddOrder) error {
	if order.Quantity.GreaterThan(r.Max) {
		return fmt.Errorf("%w: quantity %s above maximum %s", ErrRiskViolation, order.Quantity, r.Max)
	}
	return nil
}
