package oms

import "errors"

var (
	errOrderIDNotFound    = errors.New("orderID not found")
	errInvalidOrderStatus = errors.New("invalid order status")
	errNotIntegral        = errors.New("value is not a whole number of increments")
)
