package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	cfg := &config.Config{}
	cfg.Binance.BaseURL = baseURL
	cfg.Binance.APIKey = "test-key"
	cfg.Binance.APISecret = "test-secret"
	return NewClient(cfg)
}

func marketReq() models.OrderRequest {
	return models.OrderRequest{
		Symbol:     "BTCUSDC",
		Side:       models.SideBuy,
		Kind:       models.OrderMarket,
		Amount:     0.01,
		IsIsolated: true,
		SideEffect: "NO_SIDE_EFFECT",
	}
}

func TestSubmitMarketOrder_Normalizes(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sapi/v1/margin/order", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))

		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))

		_, _ = w.Write([]byte(`{
			"orderId": 12345,
			"status": "FILLED",
			"executedQty": "0.01",
			"cummulativeQuoteQty": "500.00",
			"fills": [{"price":"50000","qty":"0.01","commission":"0.0005"}]
		}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).SubmitMarketOrder(context.Background(), marketReq())

	require.True(t, res.IsSuccess())
	assert.Equal(t, "12345", res.OrderID)
	assert.Equal(t, 0.01, res.FilledQty)
	assert.InDelta(t, 50000, res.AvgFillPrice, 1e-9)

	// параметры запроса
	assert.Equal(t, "BTCUSDC", got.Get("symbol"))
	assert.Equal(t, "BUY", got.Get("side"))
	assert.Equal(t, "MARKET", got.Get("type"))
	assert.Equal(t, "0.01", got.Get("quantity"))
	assert.Equal(t, "TRUE", got.Get("isIsolated"))
	assert.Equal(t, "NO_SIDE_EFFECT", got.Get("sideEffectType"))
	assert.NotEmpty(t, got.Get("timestamp"))
	assert.NotEmpty(t, got.Get("signature"))
}

func TestSubmitMarketOrder_UseFundsSendsQuoteQty(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{"orderId": 1}`))
	}))
	defer srv.Close()

	req := marketReq()
	req.UseFunds = true
	req.Amount = 500

	res := testClient(srv.URL).SubmitMarketOrder(context.Background(), req)

	require.True(t, res.IsSuccess())
	assert.Equal(t, "500", got.Get("quoteOrderQty"))
	assert.Empty(t, got.Get("quantity"))
	// филлов в ответе нет: количество и цена остаются нулевыми
	assert.Zero(t, res.FilledQty)
	assert.Zero(t, res.AvgFillPrice)
}

func TestSubmitMarketOrder_APIRejectIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).SubmitMarketOrder(context.Background(), marketReq())

	require.False(t, res.IsSuccess())
	assert.Contains(t, res.ErrorMessage, "insufficient balance")
	assert.Contains(t, res.ErrorMessage, "-2010")
}

func TestSubmitMarketOrder_ValidatesBeforeNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	req := marketReq()
	req.Amount = 0

	res := testClient(srv.URL).SubmitMarketOrder(context.Background(), req)

	require.False(t, res.IsSuccess())
	assert.Contains(t, res.ErrorMessage, "invalid order")
	assert.Zero(t, calls)
}

func TestSubmitMarketOrder_EmptyCreds(t *testing.T) {
	cfg := &config.Config{}
	cfg.Binance.BaseURL = "http://localhost:0"
	res := NewClient(cfg).SubmitMarketOrder(context.Background(), marketReq())

	require.False(t, res.IsSuccess())
	assert.Contains(t, res.ErrorMessage, "api creds empty")
}

func TestSubmitOCOOrder(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sapi/v1/margin/order/oco", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{
			"orderListId": 777,
			"listStatusType": "EXEC_STARTED",
			"orders": [{"orderId": 1}, {"orderId": 2}]
		}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).SubmitOCOOrder(context.Background(), models.OrderRequest{
		Symbol:     "BTCUSDC",
		Side:       models.SideSell,
		Kind:       models.OrderOCO,
		Amount:     0.01,
		Price:      50850.85,
		StopPrice:  49599.60,
		IsIsolated: true,
	})

	require.True(t, res.IsSuccess())
	assert.Equal(t, "777", res.OrderID)

	assert.Equal(t, "SELL", got.Get("side"))
	assert.Equal(t, "50850.85", got.Get("price"))
	assert.Equal(t, "49599.6", got.Get("stopPrice"))
	// клиентские id у ног должны быть проставлены
	assert.NotEmpty(t, got.Get("listClientOrderId"))
	assert.NotEmpty(t, got.Get("limitClientOrderId"))
	assert.NotEmpty(t, got.Get("stopClientOrderId"))
}

func TestSubmitOCOOrder_RequiresBothLegs(t *testing.T) {
	res := testClient("http://localhost:0").SubmitOCOOrder(context.Background(), models.OrderRequest{
		Symbol: "BTCUSDC",
		Side:   models.SideSell,
		Kind:   models.OrderOCO,
		Amount: 0.01,
		Price:  50850.85, // stopPrice отсутствует
	})

	require.False(t, res.IsSuccess())
	assert.Contains(t, res.ErrorMessage, "stop price is required")
}
