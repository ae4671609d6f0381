package alerts

import (
	"context"

	"github.com/belgrano9/discord-bot-sub000/internal/models"
)

// Store владеет алертами: подписка (chat id) -> упорядоченный список.
// Порядок значим — удаление идёт по индексам.
type Store interface {
	Load(ctx context.Context) error
	// Save пишет полный снапшот. Движок зовёт его ОДИН раз на цикл,
	// сколько бы алертов ни сработало.
	Save(ctx context.Context) error

	All(ctx context.Context) (map[int64][]models.Alert, error)
	AlertsFor(ctx context.Context, subscriptionID int64) ([]models.Alert, error)

	// Add и RemoveAt — пользовательские команды, персистят сразу.
	Add(ctx context.Context, alert models.Alert) error
	RemoveAt(ctx context.Context, subscriptionID int64, index int) (*models.Alert, error)

	// RemoveBatch и Purge НЕ персистят — за ними придёт Save цикла.
	RemoveBatch(ctx context.Context, subscriptionID int64, indices []int) (int, error)
	Purge(ctx context.Context, subscriptionID int64) error
}

// QuoteSource — одна текущая цена на тикер. Ошибка = "в этом цикле цены
// нет", алерт остаётся ждать следующего круга.
type QuoteSource interface {
	CurrentPrice(ctx context.Context, ticker string) (float64, error)
}

// Notifier — чат-слой. HasSubscription=false означает, что назначение
// недоступно НАВСЕГДА и все его алерты подлежат чистке.
type Notifier interface {
	HasSubscription(subscriptionID int64) bool
	Notify(ctx context.Context, subscriptionID int64, event models.AlertNotification) error
}
