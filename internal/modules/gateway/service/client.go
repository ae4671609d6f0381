package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"
)

// Client — маржинальный ордер-шлюз Binance. Все ответы нормализуются в
// models.OrderResult, наружу не утекают ни поля API, ни паники.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   cfg.Binance.BaseURL,
		apiKey:    cfg.Binance.APIKey,
		apiSecret: cfg.Binance.APISecret,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// postSigned подписывает query HMAC-SHA256 и шлёт POST.
// Возвращает тело и статус; сетевые ошибки — как error.
func (c *Client) postSigned(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, 0, fmt.Errorf("api creds empty")
	}

	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		strings.NewReader(query),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	return rb, resp.StatusCode, nil
}
