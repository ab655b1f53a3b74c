package config

import "go.uber.org/fx"

// Module wires application configuration and the provider registry.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewProviderRegistry,
	),
)
