package oms

import (
	"fmt"

	"github.com/joripage/crossbook/pkg/oms/model"
	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/shopspring/decimal"
)

// Instrument maps decimal prices and quantities onto the book's integer
// ticks and lots.
type Instrument struct {
	Symbol    string          `yaml:"symbol"`
	PriceTick decimal.Decimal `yaml:"price_tick"`
	LotSize   decimal.Decimal `yaml:"lot_size"`
}

func (i Instrument) tick() decimal.Decimal {
	if i.PriceTick.IsPositive() {
		return i.PriceTick
	}
	return decimal.NewFromInt(1)
}

func (i Instrument) lot() decimal.Decimal {
	if i.LotSize.IsPositive() {
		return i.LotSize
	}
	return decimal.NewFromInt(1)
}

func toUnits(v, unit decimal.Decimal) (int64, error) {
	q := v.Div(unit)
	if !q.IsInteger() {
		return 0, fmt.Errorf("%w: %s by %s", errNotIntegral, v, unit)
	}
	return q.IntPart(), nil
}

func (i Instrument) PriceToTicks(price decimal.Decimal) (int64, error) {
	return toUnits(price, i.tick())
}

func (i Instrument) TicksToPrice(ticks int64) decimal.Decimal {
	return decimal.NewFromInt(ticks).Mul(i.tick())
}

func (i Instrument) QuantityToLots(qty decimal.Decimal) (int64, error) {
	return toUnits(qty, i.lot())
}

func (i Instrument) LotsToQuantity(lots int64) decimal.Decimal {
	return decimal.NewFromInt(lots).Mul(i.lot())
}

// ToBookOrder converts a request into a book order. Values that do not land
// on a tick or lot boundary are rejected as invalid orders.
func (i Instrument) ToBookOrder(add *model.AddOrder) (orderbook.Order, error) {
	o := orderbook.Order{
		ID:    orderbook.OrderID(add.OrderID),
		Owner: add.Account,
	}

	switch add.Side {
	case model.OrderSideBuy:
		o.Side = orderbook.BID
	case model.OrderSideSell:
		o.Side = orderbook.ASK
	default:
		return o, fmt.Errorf("%w: unknown side %q", orderbook.ErrInvalidOrder, add.Side)
	}

	var err error
	if o.Size, err = i.QuantityToLots(add.Quantity); err != nil {
		return o, fmt.Errorf("%w: quantity: %w", orderbook.ErrInvalidOrder, err)
	}

	switch add.Type {
	case model.OrderTypeLimit:
		o.Kind = orderbook.LIMIT
		if o.Price, err = i.PriceToTicks(add.Price); err != nil {
			return o, fmt.Errorf("%w: price: %w", orderbook.ErrInvalidOrder, err)
		}
	case model.OrderTypeMarket:
		o.Kind = orderbook.MARKET
	case model.OrderTypeStop:
		o.Kind = orderbook.STOP
		if o.StopPrice, err = i.PriceToTicks(add.StopPrice); err != nil {
			return o, fmt.Errorf("%w: stop price: %w", orderbook.ErrInvalidOrder, err)
		}
	default:
		return o, fmt.Errorf("%w: unknown type %q", orderbook.ErrInvalidOrder, add.Type)
	}

	if !add.TransactTime.IsZero() {
		o.DateBucket = orderbook.DateBucketOf(add.TransactTime)
	}
	return o, nil
}
