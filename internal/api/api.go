package api

import (
	"go.uber.org/fx"

	"github.com/hachrisjordan/award-itin-engine/internal/api/handlers"
)

// Module wires the HTTP ingress: handlers, then the server that registers
// and serves them.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			handlers.NewBuildItinerariesHandler,
			handlers.NewHealthHandler,
			handlers.NewRouteMetricsHandler,
		),
		fx.Invoke(NewServer),
	)
}
