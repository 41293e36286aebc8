package main

import (
	"context"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/container"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/server"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		container.Module,
		fx.Invoke(func(lc fx.Lifecycle, log *logger.Logger, srv *server.Server) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					log.Info("Starting MVRouter gateway")

					// Start server in background
					go func() {
						if err := srv.Start(context.Background()); err != nil {
							log.WithError(err).Fatal("Server error")
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					log.Info("Shutting down MVRouter gateway")
					return srv.Stop(ctx)
				},
			})
		}),
	)

	app.Run()
}
