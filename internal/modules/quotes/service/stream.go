package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// ===== WS: last price per symbol =====

// StreamPrices подписывается на miniTicker символа и шлёт последние цены
// в канал. Реконнект с бэкоффом, до 8 попыток подряд, закрытие по ctx.
func (c *Client) StreamPrices(ctx context.Context, symbol string) <-chan float64 {
	ch := make(chan float64)
	go func() {
		defer close(ch)
		c.health.StreamOpened()
		defer c.health.StreamClosed()
		url := c.wsURL + "/" + strings.ToLower(symbol) + "@miniTicker"
		dialer := &websocket.Dialer{}
		retry := 0
		for {
			if ctx.Err() != nil {
				return
			}
			conn, _, err := dialer.Dial(url, nil)
			if err != nil {
				retry++
				if retry > 8 {
					return
				}
				time.Sleep(time.Duration(300*retry) * time.Millisecond)
				continue
			}
			retry = 0

			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(15 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-stopPing:
						return
					case <-ctx.Done():
						_ = conn.Close()
						return
					case <-t.C:
						_ = conn.WriteMessage(websocket.PingMessage, nil)
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					close(stopPing)
					_ = conn.Close()
					break
				}
				var frame struct {
					Symbol string `json:"s"`
					Close  string `json:"c"`
				}
				if err := sonic.Unmarshal(msg, &frame); err != nil || frame.Close == "" {
					continue
				}
				px, err := strconv.ParseFloat(frame.Close, 64)
				if err != nil || px <= 0 {
					continue
				}
				c.SetPrice(frame.Symbol, px)
				select {
				case ch <- px:
				case <-ctx.Done():
					close(stopPing)
					_ = conn.Close()
					return
				}
			}
		}
	}()
	return ch
}
