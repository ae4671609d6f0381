package alerts

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/pkg/logger"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// ===== фейки =====

type memStore struct {
	mu    sync.Mutex
	data  map[int64][]models.Alert
	saves int

	saveErrs int // сколько ближайших Save должны упасть
}

func newMemStore(data map[int64][]models.Alert) *memStore {
	if data == nil {
		data = make(map[int64][]models.Alert)
	}
	return &memStore{data: data}
}

func (s *memStore) Load(ctx context.Context) error { return nil }

func (s *memStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErrs > 0 {
		s.saveErrs--
		return errors.New("disk is full")
	}
	s.saves++
	return nil
}

func (s *memStore) All(ctx context.Context) (map[int64][]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64][]models.Alert, len(s.data))
	for sub, list := range s.data {
		out[sub] = append([]models.Alert(nil), list...)
	}
	return out, nil
}

func (s *memStore) AlertsFor(ctx context.Context, sub int64) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Alert(nil), s.data[sub]...), nil
}

func (s *memStore) Add(ctx context.Context, a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[a.SubscriptionID] = append(s.data[a.SubscriptionID], a)
	return nil
}

func (s *memStore) RemoveAt(ctx context.Context, sub int64, index int) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.data[sub]
	if index < 0 || index >= len(list) {
		return nil, errors.Errorf("index %d out of range", index)
	}
	removed := list[index]
	s.data[sub] = append(list[:index], list[index+1:]...)
	return &removed, nil
}

func (s *memStore) RemoveBatch(ctx context.Context, sub int64, indices []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	n := 0
	for _, idx := range sorted {
		list := s.data[sub]
		if idx < 0 || idx >= len(list) {
			continue
		}
		s.data[sub] = append(list[:idx], list[idx+1:]...)
		n++
	}
	return n, nil
}

func (s *memStore) Purge(ctx context.Context, sub int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sub)
	return nil
}

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
	calls  map[string]int
}

func newFakeQuotes(prices map[string]float64) *fakeQuotes {
	return &fakeQuotes{
		prices: prices,
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (q *fakeQuotes) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[ticker]++
	if err := q.errs[ticker]; err != nil {
		return 0, err
	}
	px, ok := q.prices[ticker]
	if !ok {
		return 0, errors.Errorf("no price for %s", ticker)
	}
	return px, nil
}

type sent struct {
	sub   int64
	event models.AlertNotification
}

type fakeNotifier struct {
	mu       sync.Mutex
	deadSubs map[int64]bool
	sent     []sent
	sendErr  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{deadSubs: make(map[int64]bool)}
}

func (n *fakeNotifier) HasSubscription(sub int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.deadSubs[sub]
}

func (n *fakeNotifier) Notify(ctx context.Context, sub int64, ev models.AlertNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, sent{sub: sub, event: ev})
	return nil
}

func percentAlert(sub int64, ticker string, threshold, ref float64) models.Alert {
	return models.Alert{
		Ticker:         ticker,
		Kind:           models.AlertPercent,
		Threshold:      threshold,
		ReferencePrice: ref,
		SubscriptionID: sub,
	}
}

func priceAlert(sub int64, ticker string, threshold, ref float64) models.Alert {
	return models.Alert{
		Ticker:         ticker,
		Kind:           models.AlertPrice,
		Threshold:      threshold,
		ReferencePrice: ref,
		SubscriptionID: sub,
	}
}

// ===== тесты =====

func TestCheckAlerts_OneQuotePerDistinctTicker(t *testing.T) {
	// 3 алерта, 2 уникальных тикера: ровно 2 обращения за ценой
	store := newMemStore(map[int64][]models.Alert{
		1: {
			percentAlert(1, "AAPL", 5, 100),
			priceAlert(1, "AAPL", 120, 100),
		},
		2: {
			percentAlert(2, "MSFT", 5, 200),
		},
	})
	quotes := newFakeQuotes(map[string]float64{"AAPL": 101, "MSFT": 201})
	e := NewEngine(store, quotes, newFakeNotifier())

	e.CheckAlerts(context.Background())

	assert.Equal(t, 1, quotes.calls["AAPL"])
	assert.Equal(t, 1, quotes.calls["MSFT"])
	assert.Len(t, quotes.calls, 2)
}

func TestCheckAlerts_PerTickerFailureIsolation(t *testing.T) {
	store := newMemStore(map[int64][]models.Alert{
		1: {
			percentAlert(1, "AAPL", 5, 100),
			percentAlert(1, "MSFT", 5, 200),
		},
	})
	quotes := newFakeQuotes(map[string]float64{"MSFT": 220})
	quotes.errs["AAPL"] = errors.New("rate limited")
	e := NewEngine(store, quotes, newFakeNotifier())

	triggered := e.CheckAlerts(context.Background())

	// AAPL молча ждёт следующего цикла, MSFT сработал
	require.Len(t, triggered, 1)
	assert.Equal(t, "MSFT", triggered[0].Alert.Ticker)
	assert.Equal(t, 220.0, triggered[0].CurrentPrice)
}

func TestRunCycle_AtMostOnceFiring(t *testing.T) {
	store := newMemStore(map[int64][]models.Alert{
		1: {percentAlert(1, "AAPL", 5, 100)},
	})
	quotes := newFakeQuotes(map[string]float64{"AAPL": 110})
	notifier := newFakeNotifier()
	e := NewEngine(store, quotes, notifier)

	e.RunCycle(context.Background())
	e.RunCycle(context.Background())

	// уведомление одно, алерт снят после первого срабатывания
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(1), notifier.sent[0].sub)
	assert.Equal(t, "AAPL", notifier.sent[0].event.Ticker)

	left, err := store.AlertsFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestHandleTriggered_DeadSubscriptionPurgedEntirely(t *testing.T) {
	store := newMemStore(map[int64][]models.Alert{
		1: {
			percentAlert(1, "AAPL", 5, 100),
			percentAlert(1, "MSFT", 50, 200), // не сработает, но тоже уйдёт
		},
	})
	quotes := newFakeQuotes(map[string]float64{"AAPL": 110, "MSFT": 201})
	notifier := newFakeNotifier()
	notifier.deadSubs[1] = true
	e := NewEngine(store, quotes, notifier)

	e.RunCycle(context.Background())

	assert.Empty(t, notifier.sent)
	left, err := store.AlertsFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, left, "у мёртвой подписки выносятся ВСЕ алерты")
}

func TestHandleTriggered_NotifyFailureStillRemoves(t *testing.T) {
	store := newMemStore(map[int64][]models.Alert{
		1: {percentAlert(1, "AAPL", 5, 100)},
	})
	quotes := newFakeQuotes(map[string]float64{"AAPL": 110})
	notifier := newFakeNotifier()
	notifier.sendErr = errors.New("telegram 500")
	e := NewEngine(store, quotes, notifier)

	e.RunCycle(context.Background())

	// сбой доставки не возвращает алерт: повторных рассылок не будет
	left, err := store.AlertsFor(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestHandleTriggered_SingleSavePerCycle(t *testing.T) {
	store := newMemStore(map[int64][]models.Alert{
		1: {
			percentAlert(1, "AAPL", 5, 100),
			priceAlert(1, "AAPL", 105, 100),
			percentAlert(1, "MSFT", 5, 200),
		},
	})
	quotes := newFakeQuotes(map[string]float64{"AAPL": 110, "MSFT": 220})
	e := NewEngine(store, quotes, newFakeNotifier())

	e.RunCycle(context.Background())

	assert.Equal(t, 1, store.saves, "сколько бы алертов ни сработало, Save один")
}

func TestHandleTriggered_SaveFailureRetriesOnce(t *testing.T) {
	store := newMemStore(map[int64][]models.Alert{
		1: {percentAlert(1, "AAPL", 5, 100)},
	})
	store.saveErrs = 1
	quotes := newFakeQuotes(map[string]float64{"AAPL": 110})
	e := NewEngine(store, quotes, newFakeNotifier())

	e.RunCycle(context.Background())

	// первый Save упал, ретрай прошёл; отката удалений нет
	assert.Equal(t, 1, store.saves)
	left, _ := store.AlertsFor(context.Background(), 1)
	assert.Empty(t, left)
}

func TestHandleTriggered_NoTriggersNoSave(t *testing.T) {
	store := newMemStore(map[int64][]models.Alert{
		1: {percentAlert(1, "AAPL", 50, 100)},
	})
	quotes := newFakeQuotes(map[string]float64{"AAPL": 101})
	e := NewEngine(store, quotes, newFakeNotifier())

	e.RunCycle(context.Background())

	assert.Equal(t, 0, store.saves)
}

func TestIndexOf_DuplicateAlertsResolveToDistinctIndices(t *testing.T) {
	a := percentAlert(1, "AAPL", 5, 100)
	list := []models.Alert{a, a}
	used := map[int]bool{}

	first := indexOf(list, a, used)
	require.Equal(t, 0, first)
	used[first] = true

	second := indexOf(list, a, used)
	assert.Equal(t, 1, second)
}
