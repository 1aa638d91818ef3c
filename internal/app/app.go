package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/bazaar/internal/cache"
	"github.com/Additional-Code/bazaar/internal/config"
	"github.com/Additional-Code/bazaar/internal/database"
	"github.com/Additional-Code/bazaar/internal/logger"
	"github.com/Additional-Code/bazaar/internal/messaging"
	"github.com/Additional-Code/bazaar/internal/observability"
	repositorycomment "github.com/Additional-Code/bazaar/internal/repository/comment"
	repositoryoplog "github.com/Additional-Code/bazaar/internal/repository/oplog"
	repositoryorder "github.com/Additional-Code/bazaar/internal/repository/order"
	repositorypoints "github.com/Additional-Code/bazaar/internal/repository/points"
	repositoryproduct "github.com/Additional-Code/bazaar/internal/repository/product"
	repositoryuser "github.com/Additional-Code/bazaar/internal/repository/user"
	grpcserver "github.com/Additional-Code/bazaar/internal/server/grpc"
	httpserver "github.com/Additional-Code/bazaar/internal/server/http"
	servicecomment "github.com/Additional-Code/bazaar/internal/service/comment"
	serviceorder "github.com/Additional-Code/bazaar/internal/service/order"
	servicepoints "github.com/Additional-Code/bazaar/internal/service/points"
	serviceproduct "github.com/Additional-Code/bazaar/internal/service/product"
	transporthttp "github.com/Additional-Code/bazaar/internal/transport/http"
	"github.com/Additional-Code/bazaar/internal/worker"
	workerorder "github.com/Additional-Code/bazaar/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositorycomment.Module,
	repositoryoplog.Module,
	repositoryorder.Module,
	repositorypoints.Module,
	repositoryproduct.Module,
	repositoryuser.Module,
	servicecomment.Module,
	serviceorder.Module,
	servicepoints.Module,
	serviceproduct.Module,
)

// HTTP wires the HTTP transport on top of the core modules. The gRPC
// server rides along but only listens when GRPC_ENABLED is set.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
