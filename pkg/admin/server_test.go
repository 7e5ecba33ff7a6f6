package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joripage/crossbook/pkg/oms/model"
	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrders map[int64]model.Order

func (s stubOrders) GetOrder(id int64) (model.Order, error) {
	o, ok := s[id]
	if !ok {
		return model.Order{}, errors.New("not found")
	}
	return o, nil
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(orderbook.NewOrderBook(nil), nil, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s.Handler(), http.MethodPost, "/healthz")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTopOfBook(t *testing.T) {
	ctx := context.Background()
	book := orderbook.NewOrderBook(nil)
	s := NewServer(book, nil, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/v1/book/top")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"best_bid":null,"best_ask":null,"bids":0,"asks":0,"stop_orders":0}`, rec.Body.String())

	_, err := book.Submit(ctx, orderbook.Order{ID: 1, Owner: "a", Side: orderbook.BID, Kind: orderbook.LIMIT, Price: 99, Size: 1})
	require.NoError(t, err)
	_, err = book.Submit(ctx, orderbook.Order{ID: 2, Owner: "b", Side: orderbook.ASK, Kind: orderbook.LIMIT, Price: 101, Size: 1})
	require.NoError(t, err)
	_, err = book.Submit(ctx, orderbook.Order{ID: 3, Owner: "c", Side: orderbook.BID, Kind: orderbook.STOP, StopPrice: 105, Size: 1})
	require.NoError(t, err)

	rec = do(t, s.Handler(), http.MethodGet, "/v1/book/top")
	require.Equal(t, http.StatusOK, rec.Code)

	var top TopOfBook
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	require.NotNil(t, top.BestBid)
	require.NotNil(t, top.BestAsk)
	assert.Equal(t, int64(99), *top.BestBid)
	assert.Equal(t, int64(101), *top.BestAsk)
	assert.Equal(t, 1, top.StopOrders)
}

func TestGetOrder(t *testing.T) {
	orders := stubOrders{7: {OrderID: 7, Account: "alice", Status: model.OrderStatusNew}}
	s := NewServer(orderbook.NewOrderBook(nil), orders, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/v1/orders/7")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.Account)
	assert.Equal(t, model.OrderStatusNew, got.Status)

	rec = do(t, s.Handler(), http.MethodGet, "/v1/orders/8")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/v1/orders/abc")
	assert.Equal(t, http.StatusNotFound, rec.Code, "non-numeric ids do not match the route")

	noOrders := NewServer(orderbook.NewOrderBook(nil), nil, nil)
	rec = do(t, noOrders.Handler(), http.MethodGet, "/v1/orders/7")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
