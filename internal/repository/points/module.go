package points

import "go.uber.org/fx"

// Module provides the points repository to Fx.
var Module = fx.Provide(NewRepository)
