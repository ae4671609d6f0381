package alerts

import (
	"context"
	"sync"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Triggered — сработавший алерт с ценой, на которой он сработал.
type Triggered struct {
	Alert        models.Alert
	CurrentPrice float64
}

// Engine раз в интервал сверяет все алерты с рынком и рассылает
// уведомления строго по одному разу на срабатывание.
type Engine struct {
	store    Store
	quotes   QuoteSource
	notifier Notifier
}

func NewEngine(store Store, quotes QuoteSource, notifier Notifier) *Engine {
	return &Engine{
		store:    store,
		quotes:   quotes,
		notifier: notifier,
	}
}

// RunCycle — один полный круг опроса. Не параллелится сам с собой:
// вызывающий цикл ждёт завершения перед следующим тиком.
func (e *Engine) RunCycle(ctx context.Context) {
	span := opentracing.StartSpan("alerts.check_cycle")
	defer span.Finish()

	triggered := e.CheckAlerts(ctx)
	e.HandleTriggered(ctx, triggered)
}

// CheckAlerts собирает срабатывания, ничего не мутируя.
// Одна котировка на УНИКАЛЬНЫЙ тикер: N алертов на BTCUSDT — один запрос.
func (e *Engine) CheckAlerts(ctx context.Context) []Triggered {
	all, err := e.store.All(ctx)
	if err != nil {
		logger.Error("alerts: store read failed: %v", err)
		return nil
	}
	if len(all) == 0 {
		return nil
	}

	type entry struct {
		sub   int64
		alert models.Alert
	}
	byTicker := make(map[string][]entry)
	for sub, list := range all {
		for _, a := range list {
			byTicker[a.Ticker] = append(byTicker[a.Ticker], entry{sub: sub, alert: a})
		}
	}

	// Котировки независимы — тянем их веером. Снапшот уже снят,
	// конкурентные add/remove из чата нас не касаются.
	prices := make(map[string]float64, len(byTicker))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for ticker := range byTicker {
		wg.Add(1)
		go func(t string) {
			defer wg.Done()
			px, err := e.quotes.CurrentPrice(ctx, t)
			if err != nil {
				// мягкий промах: тикер пропускаем до следующего цикла
				logger.Warn("alerts: no price for %s this cycle: %v", t, err)
				return
			}
			mu.Lock()
			prices[t] = px
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	var triggered []Triggered
	for ticker, entries := range byTicker {
		px, ok := prices[ticker]
		if !ok {
			continue
		}
		for _, en := range entries {
			if en.alert.Triggered(px) {
				triggered = append(triggered, Triggered{Alert: en.alert, CurrentPrice: px})
			}
		}
	}
	return triggered
}

// HandleTriggered рассылает уведомления и удаляет сработавшие алерты.
// Удаление батчом по убыванию индексов, один Save на весь цикл.
func (e *Engine) HandleTriggered(ctx context.Context, triggered []Triggered) {
	if len(triggered) == 0 {
		return
	}

	bySub := make(map[int64][]Triggered)
	for _, t := range triggered {
		bySub[t.Alert.SubscriptionID] = append(bySub[t.Alert.SubscriptionID], t)
	}

	dirty := false
	for sub, hits := range bySub {
		if !e.notifier.HasSubscription(sub) {
			// чат удалён — назначение недостижимо навсегда,
			// выносим ВСЕ его алерты, не только сработавшие
			logger.Warn("alerts: subscription %d is gone, purging its alerts", sub)
			if err := e.store.Purge(ctx, sub); err != nil {
				logger.Error("alerts: purge %d failed: %v", sub, err)
				continue
			}
			dirty = true
			continue
		}

		current, err := e.store.AlertsFor(ctx, sub)
		if err != nil {
			logger.Error("alerts: read subscription %d failed: %v", sub, err)
			continue
		}

		used := make(map[int]bool, len(hits))
		indices := make([]int, 0, len(hits))
		for _, hit := range hits {
			idx := indexOf(current, hit.Alert, used)
			if idx < 0 {
				logger.Warn("alerts: %s alert not found in store for %d", hit.Alert.Ticker, sub)
				continue
			}
			used[idx] = true

			event := models.NewAlertNotification(hit.Alert, hit.CurrentPrice)
			if err := e.notifier.Notify(ctx, sub, event); err != nil {
				logger.Error("alerts: notify %d about %s failed: %v", sub, hit.Alert.Ticker, err)
			}
			indices = append(indices, idx)
		}

		if len(indices) == 0 {
			continue
		}
		n, err := e.store.RemoveBatch(ctx, sub, indices)
		if err != nil {
			logger.Error("alerts: batch removal failed for %d: %v", sub, err)
			continue
		}
		if n > 0 {
			dirty = true
		}
	}

	if !dirty {
		return
	}
	// In-memory состояние уже авторитетно; при сбое записи пробуем ещё
	// раз и живём до следующего удачного сейва.
	if err := e.store.Save(ctx); err != nil {
		logger.Error("alerts: store save failed: %v, retrying once", err)
		if err := e.store.Save(ctx); err != nil {
			logger.Error("alerts: store save retry failed: %v", err)
		}
	}
}

// Flush — финальный сейв при остановке, чтобы не потерять уже
// применённые удаления.
func (e *Engine) Flush(ctx context.Context) {
	if err := e.store.Save(ctx); err != nil {
		logger.Error("alerts: final save failed: %v", err)
	}
}

func indexOf(list []models.Alert, a models.Alert, used map[int]bool) int {
	for i, cur := range list {
		if used[i] {
			continue
		}
		if cur.Ticker == a.Ticker &&
			cur.Kind == a.Kind &&
			cur.Threshold == a.Threshold &&
			cur.ReferencePrice == a.ReferencePrice &&
			cur.SubscriptionID == a.SubscriptionID {
			return i
		}
	}
	return -1
}
