package trading

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("trading",
		fx.Provide(
			NewOpener,
		),
	)
}
