package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AddOrder struct {
	OrderID      int64           `json:"order_id"`
	Account      string          `json:"account"`
	Side         OrderSide       `json:"side"`
	Type         OrderType       `json:"type"`
	Price        decimal.Decimal `json:"price"`
	StopPrice    decimal.Decimal `json:"stop_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	TransactTime time.Time       `json:"transact_time"`
}

type CancelOrder struct {
	OrderID int64  `json:"order_id"`
	Account string `json:"account"`
}
