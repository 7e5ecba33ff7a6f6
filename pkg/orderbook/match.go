package orderbook

import "sort"

type Trade struct {
	BidOrderID OrderID
	AskOrderID OrderID
	Price      int64
	Size       int64
}

// Result describes what a single mutating call did to the book.
type Result struct {
	OrderID OrderID
	// Affected holds every order id that took part in a trade during the call.
	Affected []OrderID
	Trades   []Trade

	Requested int64
	Filled    int64
	// Discarded is the market remainder dropped because the opposite side ran dry.
	Discarded int64
}

type affectedSet map[OrderID]struct{}

func (s affectedSet) add(ids ...OrderID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s affectedSet) sorted() []OrderID {
	if len(s) == 0 {
		return nil
	}
	out := make([]OrderID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
