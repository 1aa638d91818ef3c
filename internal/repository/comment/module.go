package comment

import "go.uber.org/fx"

// Module provides the comment repository to Fx.
var Module = fx.Provide(NewRepository)
