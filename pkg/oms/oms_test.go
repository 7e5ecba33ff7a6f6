package oms

import (
	"context"
	"errors"
	"testing"

	"github.com/joripage/crossbook/pkg/oms/model"
	riskrule "github.com/joripage/crossbook/pkg/oms/risk_rule"
	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGateway struct {
	reports []model.Order
}

func (g *recordingGateway) OnOrderReport(ctx context.Context, report model.Order) {
	g.reports = append(g.reports, report)
}

func (g *recordingGateway) last(orderID int64) (model.Order, bool) {
	for i := len(g.reports) - 1; i >= 0; i-- {
		if g.reports[i].OrderID == orderID {
			return g.reports[i], true
		}
	}
	return model.Order{}, false
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestOMS(rules ...riskrule.RiskRule) (*OMS, *recordingGateway) {
	gw := &recordingGateway{}
	book := orderbook.NewOrderBook(nil)
	s := NewOMS(book, &OMSConfig{
		Instrument: Instrument{Symbol: "XYZ", PriceTick: d("0.01"), LotSize: d("1")},
		Rules:      rules,
		Gateway:    gw,
	})
	return s, gw
}

func addLimit(id int64, account string, side model.OrderSide, price, qty string) *model.AddOrder {
	return &model.AddOrder{OrderID: id, Account: account, Side: side, Type: model.OrderTypeLimit, Price: d(price), Quantity: d(qty)}
}

func TestAddOrderReportsFills(t *testing.T) {
	s, gw := newTestOMS()
	ctx := context.Background()

	report, err := s.AddOrder(ctx, addLimit(1, "alice", model.OrderSideBuy, "10.05", "10"))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusNew, report.Status)
	assert.Equal(t, "XYZ", report.Symbol)
	assert.True(t, report.LeavesQuantity.Equal(d("10")))

	report, err = s.AddOrder(ctx, addLimit(2, "bob", model.OrderSideSell, "10.00", "4"))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, report.Status)
	require.Len(t, report.Fills, 1)
	assert.True(t, report.Fills[0].Price.Equal(d("10.00")), "trades at the ask price")
	assert.True(t, report.LastPrice.Equal(d("10")))

	resting, ok := gw.last(1)
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusPartiallyFilled, resting.Status)
	assert.True(t, resting.CumQuantity.Equal(d("4")))
	assert.True(t, resting.LeavesQuantity.Equal(d("6")))

	_, err = s.GetOrder(2)
	assert.ErrorIs(t, err, errOrderIDNotFound, "filled orders stop being tracked")
	live, err := s.GetOrder(1)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPartiallyFilled, live.Status)
}

func TestAddOrderMarketRemainderExpires(t *testing.T) {
	s, _ := newTestOMS()
	ctx := context.Background()

	_, err := s.AddOrder(ctx, addLimit(1, "alice", model.OrderSideSell, "5", "3"))
	require.NoError(t, err)

	report, err := s.AddOrder(ctx, &model.AddOrder{OrderID: 2, Account: "bob", Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Quantity: d("5")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusExpired, report.Status)
	assert.True(t, report.CumQuantity.Equal(d("3")))
	assert.True(t, report.DiscardedQuantity.Equal(d("2")))
	assert.True(t, report.LeavesQuantity.IsZero())
}

func TestAddOrderStopLifecycle(t *testing.T) {
	s, gw := newTestOMS()
	ctx := context.Background()

	report, err := s.AddOrder(ctx, &model.AddOrder{OrderID: 1, Account: "alice", Side: model.OrderSideSell, Type: model.OrderTypeStop, StopPrice: d("9.50"), Quantity: d("2")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, report.Status)

	_, err = s.AddOrder(ctx, addLimit(2, "bob", model.OrderSideBuy, "9.50", "5"))
	require.NoError(t, err)

	stop, ok := gw.last(1)
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusFilled, stop.Status)
	require.Len(t, stop.Fills, 1)
	assert.Equal(t, int64(2), stop.Fills[0].BidOrderID)
}

func TestAddOrderRejections(t *testing.T) {
	s, gw := newTestOMS(&riskrule.MaxQuantityRule{Max: d("100")})
	ctx := context.Background()

	_, err := s.AddOrder(ctx, addLimit(1, "alice", model.OrderSideBuy, "10.001", "1"))
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder, "off-tick price")

	_, err = s.AddOrder(ctx, addLimit(2, "alice", model.OrderSideBuy, "10", "1.5"))
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder, "fractional lot")

	report, err := s.AddOrder(ctx, addLimit(3, "alice", model.OrderSideBuy, "10", "101"))
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder)
	assert.ErrorIs(t, err, riskrule.ErrRiskViolation)
	assert.Equal(t, model.OrderStatusRejected, report.Status)

	_, err = s.AddOrder(ctx, addLimit(4, "alice", model.OrderSideBuy, "10", "1"))
	require.NoError(t, err)
	_, err = s.AddOrder(ctx, addLimit(4, "mallory", model.OrderSideSell, "10", "1"))
	assert.ErrorIs(t, err, orderbook.ErrDuplicateID)

	_, err = s.AddOrder(ctx, &model.AddOrder{OrderID: 5, Account: "alice", Side: "HOLD", Type: model.OrderTypeLimit, Price: d("1"), Quantity: d("1")})
	assert.ErrorIs(t, err, orderbook.ErrInvalidOrder)

	last, ok := gw.last(3)
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusRejected, last.Status)
}

func TestCancelOrder(t *testing.T) {
	s, gw := newTestOMS()
	ctx := context.Background()

	_, err := s.AddOrder(ctx, addLimit(1, "alice", model.OrderSideBuy, "10", "5"))
	require.NoError(t, err)

	_, err = s.CancelOrder(ctx, &model.CancelOrder{OrderID: 1, Account: "mallory"})
	assert.ErrorIs(t, err, orderbook.ErrNotOwner)

	report, err := s.CancelOrder(ctx, &model.CancelOrder{OrderID: 1, Account: "alice"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, report.Status)

	_, err = s.CancelOrder(ctx, &model.CancelOrder{OrderID: 1, Account: "alice"})
	assert.True(t, errors.Is(err, orderbook.ErrNotFound))

	last, ok := gw.last(1)
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusCanceled, last.Status)
}

func TestRestoreTracksReloadedOrders(t *testing.T) {
	ctx := context.Background()
	book := orderbook.NewOrderBook(nil)
	_, err := book.Submit(ctx, orderbook.Order{ID: 7, Owner: "carol", Side: orderbook.ASK, Kind: orderbook.LIMIT, Price: 1250, Size: 3})
	require.NoError(t, err)
	_, err = book.Submit(ctx, orderbook.Order{ID: 8, Owner: "carol", Side: orderbook.BID, Kind: orderbook.STOP, StopPrice: 1300, Size: 1})
	require.NoError(t, err)

	s := NewOMS(book, &OMSConfig{Instrument: Instrument{PriceTick: d("0.01")}})
	assert.Equal(t, 2, s.Restore(ctx))

	ask, err := s.GetOrder(7)
	require.NoError(t, err)
	assert.Equal(t, model.OrderSideSell, ask.Side)
	assert.True(t, ask.Price.Equal(d("12.50")))
	assert.Equal(t, model.OrderStatusNew, ask.Status)

	stop, err := s.GetOrder(8)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, stop.Status)
	assert.True(t, stop.StopPrice.Equal(d("13")))
}

func TestInstrumentConversion(t *testing.T) {
	inst := Instrument{PriceTick: d("0.05"), LotSize: d("10")}

	ticks, err := inst.PriceToTicks(d("12.35"))
	require.NoError(t, err)
	assert.Equal(t, int64(247), ticks)
	assert.True(t, inst.TicksToPrice(247).Equal(d("12.35")))

	_, err = inst.PriceToTicks(d("12.36"))
	assert.ErrorIs(t, err, errNotIntegral)

	lots, err := inst.QuantityToLots(d("120"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), lots)
	_, err = inst.QuantityToLots(d("125"))
	assert.ErrorIs(t, err, errNotIntegral)

	zero := Instrument{}
	ticks, err = zero.PriceToTicks(d("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), ticks)
}
