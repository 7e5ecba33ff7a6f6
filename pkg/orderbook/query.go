package orderbook

import "fmt"

// Depth is a point-in-time summary of the book.
type Depth struct {
	BestBid    int64
	HasBid     bool
	BestAsk    int64
	HasAsk     bool
	Bids       int
	Asks       int
	StopOrders int
}

func (ob *OrderBook) BestBid() (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.bids.bestPrice()
}

func (ob *OrderBook) BestAsk() (int64, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.asks.bestPrice()
}

// Get returns a copy of a live order.
func (ob *OrderBook) Get(id OrderID) (Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, err := ob.store.get(id)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %d", err, id)
	}
	return *order, nil
}

func (ob *OrderBook) Top() Depth {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	d := Depth{
		Bids:       ob.bids.len(),
		Asks:       ob.asks.len(),
		StopOrders: ob.stops.len(),
	}
	d.BestBid, d.HasBid = ob.bids.bestPrice()
	d.BestAsk, d.HasAsk = ob.asks.bestPrice()
	return d
}

// ActiveOrders returns copies of every live order, oldest first. This is the
// same view the persistence layer receives.
func (ob *OrderBook) ActiveOrders() []Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.store.snapshot()
}
