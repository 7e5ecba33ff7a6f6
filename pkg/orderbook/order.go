package orderbook

import (
	"fmt"
	"time"
)

type OrderID int64

type Side string

const (
	BID Side = "BID"
	ASK Side = "ASK"
)

func (s Side) Opposite() Side {
	if s == BID {
		return ASK
	}
	return BID
}

type Kind string

const (
	LIMIT  Kind = "LIMIT"
	MARKET Kind = "MARKET"
	STOP   Kind = "STOP"
)

type Order struct {
	ID         OrderID
	Owner      string
	Side       Side
	Kind       Kind
	Size       int64 // remaining size
	Price      int64 // limit price
	StopPrice  int64 // trigger price, STOP only
	DateBucket string

	// Sequence is assigned by the book on insertion and orders equal prices.
	Sequence uint64
}

// Validate checks the fields a submission must carry for its kind.
func (o *Order) Validate() error {
	if o.Owner == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidOrder)
	}
	if o.Side != BID && o.Side != ASK {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, o.Side)
	}
	if o.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidOrder, o.Size)
	}

	switch o.Kind {
	case LIMIT:
		if o.Price <= 0 {
			return fmt.Errorf("%w: limit order needs a positive price", ErrInvalidOrder)
		}
	case STOP:
		if o.StopPrice <= 0 {
			return fmt.Errorf("%w: stop order needs a positive stop price", ErrInvalidOrder)
		}
	case MARKET:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOrder, o.Kind)
	}
	return nil
}

// DateBucketOf formats t as MMYYYY.
func DateBucketOf(t time.Time) string {
	return fmt.Sprintf("%02d%d", int(t.Month()), t.Year())
}
