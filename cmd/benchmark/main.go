package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/joripage/crossbook/pkg/orderbook"
)

const (
	minPrice = 10_000
	maxPrice = 20_000
	minQty   = 1
	maxQty   = 100
)

func randomOrder(rng *rand.Rand, id int) orderbook.Order {
	side := orderbook.BID
	if rng.Intn(2) == 0 {
		side = orderbook.ASK
	}
	o := orderbook.Order{
		ID:    orderbook.OrderID(id),
		Owner: fmt.Sprintf("acct-%d", rng.Intn(100)),
		Side:  side,
		Kind:  orderbook.LIMIT,
		Size:  int64(rng.Intn(maxQty-minQty+1) + minQty),
		Price: int64(rng.Intn(maxPrice-minPrice+1) + minPrice),
	}

	switch r := rng.Intn(100); {
	case r < 5:
		o.Kind = orderbook.MARKET
		o.Price = 0
	case r < 8:
		o.Kind = orderbook.STOP
		o.StopPrice = o.Price
		o.Price = 0
	}
	return o
}

func main() {
	var (
		numOrders int
		seed      int64
	)
	flag.IntVar(&numOrders, "orders", 1_000_000, "Number of orders to submit")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(seed))
	book := orderbook.NewOrderBook(nil)

	var (
		totalMatched int
		totalQty     int64
		discarded    int64
		cancels      int
	)
	start := time.Now()
	for i := 0; i < numOrders; i++ {
		o := randomOrder(rng, i+1)
		res, err := book.Submit(ctx, o)
		if err != nil {
			continue
		}
		for _, t := range res.Trades {
			totalMatched++
			totalQty += t.Size
			if totalMatched <= 5 {
				fmt.Printf("✅ Match: BID[%d] <=> ASK[%d] @ %d Qty %d\n", t.BidOrderID, t.AskOrderID, t.Price, t.Size)
			}
		}
		discarded += res.Discarded

		// cancel a recent order now and then to keep the book churning
		if i%10 == 9 {
			victim := orderbook.OrderID(i - rng.Intn(5))
			if live, err := book.Get(victim); err == nil {
				res, err := book.Cancel(ctx, live.Owner, victim)
				if err == nil {
					cancels++
					for _, t := range res.Trades {
						totalMatched++
						totalQty += t.Size
					}
				}
			}
		}
	}
	elapsed := time.Since(start)
	depth := book.Top()

	fmt.Println("--------")
	fmt.Printf("🏁 Total Orders     : %d (seed %d)\n", numOrders, seed)
	fmt.Printf("✅ Total Matches    : %d\n", totalMatched)
	fmt.Printf("📦 Total Matched Qty: %d\n", totalQty)
	fmt.Printf("🗑️ Discarded Qty    : %d\n", discarded)
	fmt.Printf("❌ Cancels          : %d\n", cancels)
	fmt.Printf("📚 Resting          : %d bids, %d asks, %d stops\n", depth.Bids, depth.Asks, depth.StopOrders)
	fmt.Printf("⏱️ Time Taken       : %s (%.0f orders/s)\n", elapsed, float64(numOrders)/elapsed.Seconds())
}
