package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/belgrano9/discord-bot-sub000/internal/modules/alerts/service/file"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/alerts/service/pg"
	"github.com/belgrano9/discord-bot-sub000/internal/modules/config"
	health "github.com/belgrano9/discord-bot-sub000/internal/modules/health/service"
	"github.com/belgrano9/discord-bot-sub000/pkg/db"
	"github.com/belgrano9/discord-bot-sub000/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("alerts",
		// Стор: постгрес при заданном DSN, иначе JSON-файл.
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (Store, error) {
				if cfg.DB == "" {
					return file.NewStore(cfg), nil
				}

				pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}
				if err := pool.Ping(ctx); err != nil {
					return nil, err
				}
				return pg.NewStore(db.NewPgTxManager(pool)), nil
			},
		),
		fx.Provide(
			NewEngine,
		),

		// Цикл опроса: тик раз в CheckInterval, циклы не перекрываются.
		fx.Invoke(func(
			lc fx.Lifecycle,
			e *Engine,
			store Store,
			cfg *config.Config,
			state *health.State,
		) {
			var cancel context.CancelFunc
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					var loopCtx context.Context
					loopCtx, cancel = context.WithCancel(context.Background())

					if err := store.Load(loopCtx); err != nil {
						return fmt.Errorf("alerts: load store: %w", err)
					}
					state.SetReady(true)

					go func() {
						ticker := time.NewTicker(cfg.CheckInterval)
						defer ticker.Stop()
						logger.Info("alerts: monitor started, interval=%s", cfg.CheckInterval)
						for {
							select {
							case <-loopCtx.Done():
								return
							case <-ticker.C:
								e.RunCycle(loopCtx)
								state.TouchCycle(time.Now())
							}
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					state.SetReady(false)
					if cancel != nil {
						cancel()
					}
					e.Flush(ctx)
					return nil
				},
			})
		}),
	)
}
