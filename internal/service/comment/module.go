package comment

import "go.uber.org/fx"

// Module provides the comment service to Fx.
var Module = fx.Provide(NewService)
