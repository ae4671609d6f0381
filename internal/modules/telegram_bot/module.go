package telegram

import (
	"context"

	"github.com/belgrano9/discord-bot-sub000/internal/modules/alerts"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/telegram_bot/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// Сервис Telegram как *service.Telegram
		fx.Provide(
			service.NewTelegram, // func(*config.Config, alerts.Store, *quotes.Client, *trading.Opener) (*service.Telegram, error)
		),

		// Адаптер: *service.Telegram -> alerts.Notifier
		fx.Provide(
			func(t *service.Telegram) alerts.Notifier {
				return t
			},
		),

		// Запуск long-polling через Lifecycle
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						t.Start(context.Background())
						return nil
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
