package orderbook

// stopRegistry keeps pending stop orders in submission order.
type stopRegistry struct {
	orders []*Order
}

func newStopRegistry() *stopRegistry {
	return &stopRegistry{}
}

func (r *stopRegistry) add(order *Order) {
	r.orders = append(r.orders, order)
}

func (r *stopRegistry) remove(id OrderID) bool {
	for i, o := range r.orders {
		if o.ID == id {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return true
		}
	}
	return false
}

func (r *stopRegistry) len() int {
	return len(r.orders)
}

// nextTriggered removes and returns the oldest stop order whose trigger
// condition holds against the given best prices.
//
// A bid stop fires once the best ask has reached its stop price; an ask stop
// fires once the best bid has fallen to its stop price. An empty opposite
// side never fires anything.
func (r *stopRegistry) nextTriggered(bestBid int64, hasBid bool, bestAsk int64, hasAsk bool) *Order {
	for i, o := range r.orders {
		if triggers(o, bestBid, hasBid, bestAsk, hasAsk) {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return o
		}
	}
	return nil
}

func triggers(o *Order, bestBid int64, hasBid bool, bestAsk int64, hasAsk bool) bool {
	switch o.Side {
	case BID:
		return hasAsk && o.StopPrice <= bestAsk
	case ASK:
		return hasBid && o.StopPrice >= bestBid
	}
	return false
}
