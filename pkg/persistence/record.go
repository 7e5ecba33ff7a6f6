package persistence

import (
	"errors"
	"fmt"

	"github.com/joripage/crossbook/pkg/orderbook"
)

var errCorruptRecord = errors.New("corrupt active order record")

// Record is the durable form of an active order. Position keeps the snapshot
// order, which is the order the book replays on load; the in-memory sequence
// itself is not stored.
type Record struct {
	Position   int    `json:"-" gorm:"column:position;primaryKey;autoIncrement:false"`
	OrderID    int64  `json:"order_id" gorm:"column:order_id;not null"`
	Owner      string `json:"owner" gorm:"column:owner;not null"`
	Side       string `json:"side" gorm:"column:side;not null"`
	Kind       string `json:"kind" gorm:"column:kind;not null"`
	Size       int64  `json:"size" gorm:"column:size;not null"`
	Price      int64  `json:"price,omitempty" gorm:"column:price"`
	StopPrice  int64  `json:"stop_price,omitempty" gorm:"column:stop_price"`
	DateBucket string `json:"date_bucket" gorm:"column:date_bucket"`
}

func (Record) TableName() string {
	return "active_orders"
}

func FromOrders(orders []orderbook.Order) []Record {
	records := make([]Record, 0, len(orders))
	for i, o := range orders {
		records = append(records, Record{
			Position:   i,
			OrderID:    int64(o.ID),
			Owner:      o.Owner,
			Side:       string(o.Side),
			Kind:       string(o.Kind),
			Size:       o.Size,
			Price:      o.Price,
			StopPrice:  o.StopPrice,
			DateBucket: o.DateBucket,
		})
	}
	return records
}

// ToOrders decodes records in slice order. Field validation is left to the
// book, which skips what it cannot replay; only unknown enums fail here.
func ToOrders(records []Record) ([]orderbook.Order, error) {
	orders := make([]orderbook.Order, 0, len(records))
	for _, r := range records {
		side := orderbook.Side(r.Side)
		if side != orderbook.BID && side != orderbook.ASK {
			return nil, fmt.Errorf("%w: order %d has side %q", errCorruptRecord, r.OrderID, r.Side)
		}
		kind := orderbook.Kind(r.Kind)
		switch kind {
		case orderbook.LIMIT, orderbook.MARKET, orderbook.STOP:
		default:
			return nil, fmt.Errorf("%w: order %d has kind %q", errCorruptRecord, r.OrderID, r.Kind)
		}

		orders = append(orders, orderbook.Order{
			ID:         orderbook.OrderID(r.OrderID),
			Owner:      r.Owner,
			Side:       side,
			Kind:       kind,
			Size:       r.Size,
			Price:      r.Price,
			StopPrice:  r.StopPrice,
			DateBucket: r.DateBucket,
		})
	}
	return orders, nil
}
