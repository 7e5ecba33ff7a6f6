package oms

import (
	"fmt"

	"github.com/joripage/crossbook/pkg/oms/model"
)

func (s *OMS) AddOrderToMap(order *model.Order) {
	s.orderIDMapping.Store(order.OrderID, order)
}

func (s *OMS) GetOrderByOrderID(orderID int64) (*model.Order, error) {
	order, ok := s.orderIDMapping.Load(orderID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", errOrderIDNotFound, orderID)
	}
	return order.(*model.Order), nil
}

func (s *OMS) DeleteOrderByOrderID(orderID int64) {
	s.orderIDMapping.Delete(orderID)
}

// GetOrder returns a copy of a live order's state.
func (s *OMS) GetOrder(orderID int64) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.GetOrderByOrderID(orderID)
	if err != nil {
		return model.Order{}, err
	}
	return *order, nil
}
