package orchestrator

import "go.uber.org/fx"

// Module provides the Orchestrator to the fx graph.
func Module() fx.Option {
	return fx.Options(fx.Provide(New))
}
