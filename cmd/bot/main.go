package main

import (
	"context"
	"log"

	"github.com/belgrano9/discord-bot-sub000/internal/modules/alerts"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/gateway"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/health"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/quotes"
	telegram "github.com/belgrano9/discord-bot-sub000/internal/modules/telegram_bot"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/trading"
	"github.com/belgrano9/discord-bot-sub000/pkg/logger"
	"github.com/belgrano9/discord-bot-sub000/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "discord-bot-sub000"

func main() {
	logger.SetServiceName(serviceName)
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		health.Module(),
		quotes.Module(),
		gateway.Module(),
		trading.Module(),
		alerts.Module(),
		telegram.Module(),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config) error {
				_, closeTracer, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Jaeger.Host,
					Port: cfg.Jaeger.Port,
				})
				if err != nil {
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						closeTracer()
						return nil
					},
				})
				return nil
			},
		),
	)

	app.Run()
}
