package points

import "go.uber.org/fx"

// Module provides the points service to Fx.
var Module = fx.Provide(NewService)
