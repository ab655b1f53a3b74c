package enrichment

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("enrichment",
	fx.Provide(NewDispatcher),
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, dispatcher *Dispatcher, orchestrator *Orchestrator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			dispatcher.Start(orchestrator)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return dispatcher.Stop(ctx)
		},
	})
}
