package oplog

import "go.uber.org/fx"

// Module provides the op-log repository to Fx.
var Module = fx.Provide(NewRepository)
