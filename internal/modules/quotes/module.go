package quotes

import (
	"github.com/belgrano9/discord-bot-sub000/internal/modules/alerts"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/quotes/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("quotes",
		fx.Provide(
			service.NewClient,
		),

		// Адаптер: *service.Client -> alerts.QuoteSource
		fx.Provide(
			func(c *service.Client) alerts.QuoteSource {
				return c
			},
		),
	)
}
