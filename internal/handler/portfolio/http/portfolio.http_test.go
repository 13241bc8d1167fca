package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samthambad/naviin/internal/ledger"
	"github.com/samthambad/naviin/internal/service/portfolio"
)

type fixedPrices struct {
	current map[string]decimal.Decimal
}

func (p *fixedPrices) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	return p.current[symbol], nil
}

func (p *fixedPrices) PreviousClose(_ context.Context, symbol string) (decimal.Decimal, error) {
	return p.current[symbol], nil
}

func newTestHandler(t *testing.T) (*Handler, *portfolio.Service) {
	t.Helper()

	svc := portfolio.NewService(ledger.New(), &fixedPrices{current: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(150),
	}}, nil)

	return NewPortfolioHTTPHandler(svc, 0), svc
}

func TestSummaryEndpoint(t *testing.T) {
	handler, svc := newTestHandler(t)
	_, err := svc.Fund(context.Background(), "10000")
	require.NoError(t, err)
	_, err = svc.Buy(context.Background(), "AAPL", "10")
	require.NoError(t, err)

	mux := http.NewServeMux()
	handler.Register(mux)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/portfolio/v1/summary", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "8500", resp.CashBalance)
	assert.Equal(t, 1, resp.TradeCount)
	require.Len(t, resp.Holdings, 1)
	assert.Equal(t, "AAPL", resp.Holdings[0].Symbol)
	assert.Equal(t, "1500", resp.Holdings[0].MarketValue.String)
}

func TestPlaceOrderEndpoint(t *testing.T) {
	handler, svc := newTestHandler(t)
	_, err := svc.Fund(context.Background(), "2000")
	require.NoError(t, err)

	mux := http.NewServeMux()
	handler.Register(mux)

	body := `{"kind":"buy_limit","symbol":"aapl","quantity":"10","price":"150"}`
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/portfolio/v1/orders", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp PlaceOrderResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "BUY_LIMIT", resp.Kind)
	assert.Equal(t, "AAPL", resp.Symbol)
	assert.Len(t, svc.Ledger().OpenOrders(), 1)
}

func TestPlaceOrderRejectsBadKind(t *testing.T) {
	handler, _ := newTestHandler(t)
	mux := http.NewServeMux()
	handler.Register(mux)

	body := `{"kind":"market","symbol":"AAPL","quantity":"10","price":"150"}`
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/portfolio/v1/orders", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPlaceOrderRejectsUncoveredOrder(t *testing.T) {
	handler, _ := newTestHandler(t)
	mux := http.NewServeMux()
	handler.Register(mux)

	body := `{"kind":"buy_limit","symbol":"AAPL","quantity":"10","price":"150"}`
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/portfolio/v1/orders", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestTradesEndpoint(t *testing.T) {
	handler, svc := newTestHandler(t)
	_, err := svc.Fund(context.Background(), "10000")
	require.NoError(t, err)
	_, err = svc.Buy(context.Background(), "AAPL", "10")
	require.NoError(t, err)

	mux := http.NewServeMux()
	handler.Register(mux)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/portfolio/v1/trades", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var trades []TradeResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, "BUY", trades[0].Side)
	assert.Equal(t, "150", trades[0].PricePerUnit)
}

func TestStreamPushesWatchlistQuotes(t *testing.T) {
	handler, svc := newTestHandler(t)
	svc.Watch(context.Background(), "AAPL")

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/portfolio/v1/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var message QuoteMessage
	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, "AAPL", message.Symbol)
	assert.Equal(t, "150", message.Price)
}

func TestOrdersEndpointRejectsUnsupportedMethod(t *testing.T) {
	handler, _ := newTestHandler(t)
	mux := http.NewServeMux()
	handler.Register(mux)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/portfolio/v1/orders", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
