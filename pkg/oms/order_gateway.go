package oms

import (
	"context"

	"github.com/joripage/crossbook/pkg/oms/model"
)

// OrderGateway carries order reports back to clients.
type OrderGateway interface {
	OnOrderReport(ctx context.Context, report model.Order)
}

type nopGateway struct{}

func (nopGateway) OnOrderReport(context.Context, model.Order) {}
