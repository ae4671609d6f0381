package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/belgrano9/discord-bot-sub000/pkg/logger"
)

// trackerSet — активные трекинги цены, ключ chatID+symbol.
type trackerSet struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newTrackerSet() *trackerSet {
	return &trackerSet{cancels: make(map[string]context.CancelFunc)}
}

func trackerKey(chatID int64, symbol string) string {
	return strconv.FormatInt(chatID, 10) + ":" + strings.ToUpper(symbol)
}

func (s *trackerSet) add(key string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancels[key]; ok {
		return false
	}
	s.cancels[key] = cancel
	return true
}

func (s *trackerSet) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.cancels[key]
	if !ok {
		return false
	}
	cancel()
	delete(s.cancels, key)
	return true
}

func (s *trackerSet) drop(key string) {
	s.mu.Lock()
	delete(s.cancels, key)
	s.mu.Unlock()
}

func (s *trackerSet) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, cancel := range s.cancels {
		cancel()
		delete(s.cancels, k)
	}
}

// /track SYMBOL — периодически шлём цену из websocket-стрима.
func (t *Telegram) cmdTrack(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		_, _ = t.Send(ctx, chatID, "Формат: /track SYMBOL")
		return
	}
	symbol := strings.ToUpper(args[0])
	key := trackerKey(chatID, symbol)

	trackCtx, cancel := context.WithCancel(ctx)
	if !t.trackers.add(key, cancel) {
		cancel()
		_, _ = t.SendF(ctx, chatID, "%s уже трекается", symbol)
		return
	}

	prices := t.quotes.StreamPrices(trackCtx, symbol)
	interval := t.cfg.TrackInterval

	go func() {
		defer t.trackers.drop(key)

		tk := time.NewTicker(interval)
		defer tk.Stop()

		var last float64
		var seen bool
		for {
			select {
			case <-trackCtx.Done():
				return
			case px, ok := <-prices:
				if !ok {
					logger.Info("telegram: price stream %s closed", symbol)
					_, _ = t.SendF(trackCtx, chatID, "⚠️ Стрим %s оборвался, трекинг остановлен", symbol)
					return
				}
				last, seen = px, true
			case <-tk.C:
				if !seen {
					continue
				}
				_, _ = t.SendF(trackCtx, chatID, "📈 %s: %.2f", symbol, last)
			}
		}
	}()

	_, _ = t.SendF(ctx, chatID, "👀 Трекаю %s, интервал %s. /untrack %s для остановки", symbol, interval, symbol)
}

func (t *Telegram) cmdUntrack(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		_, _ = t.Send(ctx, chatID, "Формат: /untrack SYMBOL")
		return
	}
	symbol := strings.ToUpper(args[0])
	if !t.trackers.remove(trackerKey(chatID, symbol)) {
		_, _ = t.SendF(ctx, chatID, "%s и не трекался", symbol)
		return
	}
	_, _ = t.SendF(ctx, chatID, "🛑 Трекинг %s остановлен", symbol)
}
