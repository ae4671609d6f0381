package gateway

import (
	"github.com/belgrano9/discord-bot-sub000/internal/modules/gateway/service"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/trading"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(
			service.NewClient,
		),

		// Адаптер: *service.Client -> trading.OrderGateway
		fx.Provide(
			func(c *service.Client) trading.OrderGateway {
				return c
			},
		),
	)
}
