package orderbook

import (
	"container/heap"

	"github.com/gammazero/deque"
)

// priceLevelQueue holds resting limit orders of one side. Price levels are
// kept in a heap; orders inside a level are FIFO, which is sequence order
// because the book pushes orders right after assigning their sequence.
type priceLevelQueue struct {
	side   Side
	levels map[int64]*deque.Deque[*Order]
	prices *PriceHeap
	count  int
}

func newPriceLevelQueue(side Side) *priceLevelQueue {
	less := func(i, j int64) bool { return i < j } // min-heap for asks
	if side == BID {
		less = func(i, j int64) bool { return i > j } // max-heap for bids
	}
	return &priceLevelQueue{
		side:   side,
		levels: make(map[int64]*deque.Deque[*Order]),
		prices: NewPriceHeap(less),
	}
}

func (q *priceLevelQueue) push(order *Order) {
	level := q.levels[order.Price]
	if level == nil {
		level = &deque.Deque[*Order]{}
		q.levels[order.Price] = level
		heap.Push(q.prices, order.Price)
	}
	level.PushBack(order)
	q.count++
}

// peekBest returns the highest-priority order, dropping exhausted levels on
// the way. Size changes on the head never move it; only popBest or remove do.
func (q *priceLevelQueue) peekBest() *Order {
	for {
		price, ok := q.prices.Peek()
		if !ok {
			return nil
		}
		level := q.levels[price]
		if level == nil || level.Len() == 0 {
			heap.Pop(q.prices)
			delete(q.levels, price)
			continue
		}
		return level.Front()
	}
}

func (q *priceLevelQueue) popBest() *Order {
	best := q.peekBest()
	if best == nil {
		return nil
	}
	q.levels[best.Price].PopFront()
	q.count--
	return best
}

// remove takes an order out of the middle of its level. An emptied level is
// left for peekBest to discard.
func (q *priceLevelQueue) remove(order *Order) bool {
	level := q.levels[order.Price]
	if level == nil {
		return false
	}
	i := level.Index(func(o *Order) bool { return o.ID == order.ID })
	if i < 0 {
		return false
	}
	level.Remove(i)
	q.count--
	return true
}

func (q *priceLevelQueue) isEmpty() bool {
	return q.count == 0
}

func (q *priceLevelQueue) len() int {
	return q.count
}

// bestPrice reports the price at the head, ok=false when the side is empty.
func (q *priceLevelQueue) bestPrice() (int64, bool) {
	best := q.peekBest()
	if best == nil {
		return 0, false
	}
	return best.Price, true
}
