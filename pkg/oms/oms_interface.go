package oms

import (
	"context"

	"github.com/joripage/crossbook/pkg/oms/model"
)

type IOMS interface {
	AddOrder(ctx context.Context, addOrder *model.AddOrder) (model.Order, error)
	CancelOrder(ctx context.Context, cancelOrder *model.CancelOrder) (model.Order, error)
	GetOrder(orderID int64) (model.Order, error)
}

var _ IOMS = (*OMS)(nil)
