package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendingNew      OrderStatus = "PendingNew"
	OrderStatusNew             OrderStatus = "New"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	// OrderStatusPending is a stop order waiting for its trigger.
	OrderStatusPending  OrderStatus = "Pending"
	OrderStatusCanceled OrderStatus = "Canceled"
	// OrderStatusExpired means the book dropped the unfilled remainder of a
	// market or triggered stop order.
	OrderStatusExpired  OrderStatus = "Expired"
	OrderStatusRejected OrderStatus = "Rejected"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeStop   OrderType = "STOP"
)

type Fill struct {
	BidOrderID int64           `json:"bid_order_id"`
	AskOrderID int64           `json:"ask_order_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Order is the OMS view of an order: what was asked for and how much of it
// has been done.
type Order struct {
	OrderID      int64           `json:"order_id"`
	Account      string          `json:"account"`
	Symbol       string          `json:"symbol"`
	Side         OrderSide       `json:"side"`
	Type         OrderType       `json:"type"`
	Price        decimal.Decimal `json:"price"`
	StopPrice    decimal.Decimal `json:"stop_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	TransactTime time.Time       `json:"transact_time"`

	Status            OrderStatus     `json:"status"`
	CumQuantity       decimal.Decimal `json:"cum_quantity"`
	LeavesQuantity    decimal.Decimal `json:"leaves_quantity"`
	DiscardedQuantity decimal.Decimal `json:"discarded_quantity"`
	LastQuantity      decimal.Decimal `json:"last_quantity"`
	LastPrice         decimal.Decimal `json:"last_price"`

	// Fills made by the call that produced this report.
	Fills []Fill `json:"fills,omitempty"`
}

func NewOrder(add *AddOrder, symbol string) *Order {
	return &Order{
		OrderID:        add.OrderID,
		Account:        add.Account,
		Symbol:         symbol,
		Side:           add.Side,
		Type:           add.Type,
		Price:          add.Price,
		StopPrice:      add.StopPrice,
		Quantity:       add.Quantity,
		TransactTime:   add.TransactTime,
		Status:         OrderStatusPendingNew,
		LeavesQuantity: add.Quantity,
	}
}

// ApplyFill records one execution against this order.
func (o *Order) ApplyFill(qty, price decimal.Decimal) {
	o.CumQuantity = o.CumQuantity.Add(qty)
	o.LeavesQuantity = o.Quantity.Sub(o.CumQuantity)
	o.LastQuantity = qty
	o.LastPrice = price
}

// Settle derives the status from what the book still holds. remaining is the
// size left in the book, live reports whether the book still has the order.
func (o *Order) Settle(remaining decimal.Decimal, live bool) {
	switch {
	case live && o.Type == OrderTypeStop && o.CumQuantity.IsZero():
		o.Status = OrderStatusPending
		o.LeavesQuantity = remaining
	case live && o.CumQuantity.IsZero():
		o.Status = OrderStatusNew
		o.LeavesQuantity = remaining
	case live:
		o.Status = OrderStatusPartiallyFilled
		o.LeavesQuantity = remaining
	case o.CumQuantity.GreaterThanOrEqual(o.Quantity):
		o.Status = OrderStatusFilled
		o.LeavesQuantity = decimal.Zero
	default:
		o.Status = OrderStatusExpired
		o.DiscardedQuantity = o.Quantity.Sub(o.CumQuantity)
		o.LeavesQuantity = decimal.Zero
	}
}

func (o *Order) Cancel() {
	o.Status = OrderStatusCanceled
	o.LeavesQuantity = decimal.Zero
}

func (o *Order) CanCancel() bool {
	switch o.Status {
	case OrderStatusNew, OrderStatusPartiallyFilled, OrderStatusPending:
		return true
	}
	return false
}

// IsEnd reports whether the order reached a terminal status.
func (o *Order) IsEnd() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusExpired, OrderStatusRejected:
		return true
	}
	return false
}
