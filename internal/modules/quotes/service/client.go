package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"
	health "github.com/belgrano9/discord-bot-sub000/internal/modules/health/service"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Client — ценовой источник: REST-квоты по запросу + опциональный WS-стрим.
// Кэшируем последнюю цену по символу, чтобы чат-команды не дёргали REST зря.
type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
	health  *health.State

	mu     sync.RWMutex
	prices map[string]float64
}

func NewClient(cfg *config.Config, state *health.State) *Client {
	return &Client{
		baseURL: cfg.Binance.BaseURL,
		wsURL:   cfg.Binance.WSURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		health:  state,
		prices:  make(map[string]float64),
	}
}

// CurrentPrice тянет живую котировку. Идемпотентна и без сайд-эффектов
// (кроме обновления кэша): ошибка — это "нет цены в этом цикле", не фатал.
func (c *Client) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return 0, errors.New("empty ticker")
	}

	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "new request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "ticker %s", ticker)
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return 0, errors.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := sonic.Unmarshal(rb, &out); err != nil {
		return 0, errors.Wrap(err, "decode ticker")
	}

	px, err := strconv.ParseFloat(out.Price, 64)
	if err != nil || px <= 0 {
		return 0, errors.Errorf("unusable price %q for %s", out.Price, ticker)
	}

	c.SetPrice(ticker, px)
	return px, nil
}

func (c *Client) SetPrice(symbol string, price float64) {
	c.mu.Lock()
	c.prices[symbol] = price
	c.mu.Unlock()
}

// LastPrice — последняя известная цена из кэша (0 если ещё не видели).
func (c *Client) LastPrice(symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prices[strings.ToUpper(symbol)]
}
