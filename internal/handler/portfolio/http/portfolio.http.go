package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guregu/null/v5"
	"github.com/sirupsen/logrus"

	"github.com/samthambad/naviin/internal/entity"
	"github.com/samthambad/naviin/internal/ledger"
	"github.com/samthambad/naviin/internal/service/portfolio"
	"github.com/samthambad/naviin/internal/service/pricing"
)

const (
	defaultStreamInterval = 5 * time.Second
	streamWriteWait       = 10 * time.Second
)

type PlaceOrderRequest struct {
	Kind     string `json:"kind"`
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

type PlaceOrderResponse struct {
	Kind         string `json:"kind"`
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	TriggerPrice string `json:"trigger_price"`
	Status       string `json:"status"`
}

type HoldingResponse struct {
	Symbol      string      `json:"symbol"`
	Quantity    string      `json:"quantity"`
	AvgCost     string      `json:"avg_cost"`
	MarketValue null.String `json:"market_value"`
}

type TradeResponse struct {
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
	Side         string `json:"side"`
	ExecutedAt   int64  `json:"executed_at"`
}

type OrderResponse struct {
	Kind         string `json:"kind"`
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	TriggerPrice string `json:"trigger_price"`
	CreatedAt    int64  `json:"created_at"`
}

type SummaryResponse struct {
	CashBalance   string            `json:"cash_balance"`
	AvailableCash string            `json:"available_cash"`
	Holdings      []HoldingResponse `json:"holdings"`
	OpenOrders    []OrderResponse   `json:"open_orders"`
	TradeCount    int               `json:"trade_count"`
	Watchlist     []string          `json:"watchlist"`
}

type QuoteMessage struct {
	Symbol        string      `json:"symbol"`
	Price         string      `json:"price"`
	PreviousClose null.String `json:"previous_close"`
	At            int64       `json:"at"`
}

type Handler struct {
	portfolioService *portfolio.Service
	streamInterval   time.Duration
	upgrader         websocket.Upgrader
}

func NewPortfolioHTTPHandler(portfolioService *portfolio.Service, streamInterval time.Duration) *Handler {
	if streamInterval <= 0 {
		streamInterval = defaultStreamInterval
	}

	return &Handler{
		portfolioService: portfolioService,
		streamInterval:   streamInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/portfolio/v1/summary", h.Summary)
	mux.HandleFunc("/portfolio/v1/holdings", h.Holdings)
	mux.HandleFunc("/portfolio/v1/trades", h.Trades)
	mux.HandleFunc("/portfolio/v1/orders", h.Orders)
	mux.HandleFunc("/portfolio/v1/stream", h.Stream)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	snap := h.portfolioService.Snapshot()
	resp := SummaryResponse{
		CashBalance:   snap.CashBalance.String(),
		AvailableCash: h.portfolioService.Ledger().AvailableCash().String(),
		Holdings:      h.mapHoldings(r, snap),
		OpenOrders:    mapOrders(snap.OpenOrders),
		TradeCount:    len(snap.Trades),
		Watchlist:     snap.Watchlist,
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Holdings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, h.mapHoldings(r, h.portfolioService.Snapshot()))
}

func (h *Handler) Trades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	snap := h.portfolioService.Snapshot()
	trades := make([]TradeResponse, 0, len(snap.Trades))
	for _, trade := range snap.Trades {
		trades = append(trades, TradeResponse{
			Symbol:       trade.Symbol,
			Quantity:     trade.Quantity.String(),
			PricePerUnit: trade.PricePerUnit.String(),
			Side:         string(trade.Side),
			ExecutedAt:   trade.ExecutedAt,
		})
	}

	writeJSON(w, http.StatusOK, trades)
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, mapOrders(h.portfolioService.Snapshot().OpenOrders))
	case http.MethodPost:
		h.placeOrder(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	kind, ok := parseOrderKind(req.Kind)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "kind must be one of buy_limit, stop_loss, take_profit"})
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "symbol is required"})
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	_, err := h.portfolioService.PlaceOrder(r.Context(), kind, symbol, req.Quantity, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "quantity and price must be positive numbers"})
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrInsufficientHoldings):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, PlaceOrderResponse{
		Kind:         string(kind),
		Symbol:       symbol,
		Quantity:     req.Quantity,
		TriggerPrice: req.Price,
		Status:       "open",
	})
}

// Stream pushes watchlist quotes over a websocket until the client
// disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		if err := h.pushQuotes(r, conn); err != nil {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) pushQuotes(r *http.Request, conn *websocket.Conn) error {
	for _, symbol := range h.portfolioService.Ledger().Watchlist() {
		current, previousClose, err := h.portfolioService.Quote(r.Context(), symbol)
		if err != nil {
			if !errors.Is(err, pricing.ErrPriceUnavailable) {
				logrus.WithField("symbol", symbol).WithError(err).Warn("stream quote failed")
			}
			continue
		}

		message := QuoteMessage{
			Symbol: symbol,
			Price:  current.String(),
			At:     time.Now().UTC().Unix(),
		}
		if !previousClose.IsZero() {
			message.PreviousClose = null.StringFrom(previousClose.String())
		}

		// a stalled client must not block the handler goroutine forever
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
			return err
		}
		if err := conn.WriteJSON(message); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) mapHoldings(r *http.Request, snap entity.PortfolioSnapshot) []HoldingResponse {
	holdings := make([]HoldingResponse, 0, len(snap.Holdings))
	for _, holding := range snap.Holdings {
		resp := HoldingResponse{
			Symbol:   holding.Symbol,
			Quantity: holding.Quantity.String(),
			AvgCost:  holding.AvgCost.String(),
		}
		if price, _, err := h.portfolioService.Quote(r.Context(), holding.Symbol); err == nil {
			resp.MarketValue = null.StringFrom(holding.MarketValue(price).String())
		}
		holdings = append(holdings, resp)
	}

	return holdings
}

func mapOrders(orders []entity.OpenOrder) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, OrderResponse{
			Kind:         string(order.Kind),
			Symbol:       order.Symbol,
			Quantity:     order.Quantity.String(),
			TriggerPrice: order.TriggerPrice.String(),
			CreatedAt:    order.CreatedAt,
		})
	}

	return out
}

func parseOrderKind(raw string) (entity.OrderKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY_LIMIT", "BUYLIMIT":
		return entity.OrderKindBuyLimit, true
	case "STOP_LOSS", "STOPLOSS":
		return entity.OrderKindStopLoss, true
	case "TAKE_PROFIT", "TAKEPROFIT":
		return entity.OrderKindTakeProfit, true
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
