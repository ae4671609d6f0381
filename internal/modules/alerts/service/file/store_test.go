package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.json")
	cfg := &config.Config{AlertStorePath: path}
	return NewStore(cfg), path
}

func alert(sub int64, ticker string, threshold float64) models.Alert {
	return models.Alert{
		Ticker:         ticker,
		Kind:           models.AlertPercent,
		Threshold:      threshold,
		ReferencePrice: 100,
		CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SubscriptionID: sub,
	}
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Load(context.Background()))

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	require.NoError(t, s.Add(ctx, alert(10, "BTCUSDT", 5)))
	require.NoError(t, s.Add(ctx, alert(10, "ETHUSDT", 3)))
	require.NoError(t, s.Add(ctx, alert(20, "BTCUSDT", 7)))

	// свежий стор поверх того же файла видит то же состояние
	reopened := NewStore(&config.Config{AlertStorePath: path})
	all, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all[10], 2)
	require.Len(t, all[20], 1)

	a := all[10][0]
	assert.Equal(t, "BTCUSDT", a.Ticker)
	assert.Equal(t, models.AlertPercent, a.Kind)
	assert.Equal(t, 5.0, a.Threshold)
	assert.Equal(t, 100.0, a.ReferencePrice)
	assert.Equal(t, int64(10), a.SubscriptionID)
	// created_at хранится с секундной точностью
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), a.CreatedAt)
}

func TestStore_RemoveAt(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Add(ctx, alert(10, "AAA", 1)))
	require.NoError(t, s.Add(ctx, alert(10, "BBB", 2)))

	removed, err := s.RemoveAt(ctx, 10, 0)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "AAA", removed.Ticker)

	left, err := s.AlertsFor(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "BBB", left[0].Ticker)

	// индекс за пределами — пустой результат, не ошибка
	removed, err = s.RemoveAt(ctx, 10, 5)
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestStore_RemoveAtAfterConcurrentShrink(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Add(ctx, alert(10, "AAA", 1)))

	// цикл движка снял сработавший алерт, пока пользователь смотрел
	// на снапшот из /alerts: его индекс 0 больше не существует
	_, err := s.RemoveBatch(ctx, 10, []int{0})
	require.NoError(t, err)

	removed, err := s.RemoveAt(ctx, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, removed, "устаревший индекс — пустой результат, не сбой")
}

func TestStore_RemoveBatchDescendingIndices(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	tickers := []string{"T0", "T1", "T2", "T3", "T4"}
	for i, tk := range tickers {
		require.NoError(t, s.Add(ctx, alert(10, tk, float64(i))))
	}

	// порядок индексов на входе не важен, внутри они идут по убыванию
	n, err := s.RemoveBatch(ctx, 10, []int{1, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.AlertsFor(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 3)
	assert.Equal(t, "T0", left[0].Ticker)
	assert.Equal(t, "T2", left[1].Ticker)
	assert.Equal(t, "T4", left[2].Ticker)
}

func TestStore_RemoveBatchDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	require.NoError(t, s.Add(ctx, alert(10, "AAA", 1)))
	require.NoError(t, s.Add(ctx, alert(10, "BBB", 2)))

	_, err := s.RemoveBatch(ctx, 10, []int{0, 1})
	require.NoError(t, err)

	// диск ещё со старым снапшотом: Save за движком
	before, err := NewStore(&config.Config{AlertStorePath: path}).AlertsFor(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, before, 2)

	require.NoError(t, s.Save(ctx))

	after, err := NewStore(&config.Config{AlertStorePath: path}).AlertsFor(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestStore_PurgeDropsSubscriptionKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Add(ctx, alert(10, "AAA", 1)))
	require.NoError(t, s.Add(ctx, alert(20, "BBB", 2)))

	require.NoError(t, s.Purge(ctx, 10))
	require.NoError(t, s.Save(ctx))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Contains(t, all, int64(20))
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	require.NoError(t, s.Add(ctx, alert(10, "AAA", 1)))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
