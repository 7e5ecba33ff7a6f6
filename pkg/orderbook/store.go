package orderbook

import "sort"

// orderStore is the source of truth for which orders are live and how much
// of each remains. Every other structure holds pointers into it.
type orderStore struct {
	orders map[OrderID]*Order
}

func newOrderStore() *orderStore {
	return &orderStore{orders: make(map[OrderID]*Order)}
}

func (s *orderStore) insert(order *Order) error {
	if _, ok := s.orders[order.ID]; ok {
		return ErrDuplicateID
	}
	s.orders[order.ID] = order
	return nil
}

func (s *orderStore) get(id OrderID) (*Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *orderStore) remove(id OrderID) {
	delete(s.orders, id)
}

func (s *orderStore) len() int {
	return len(s.orders)
}

// snapshot copies every order with size left, oldest first.
func (s *orderStore) snapshot() []Order {
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		if o.Size > 0 {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
