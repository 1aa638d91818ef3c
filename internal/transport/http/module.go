package http

import (
	"go.uber.org/fx"

	commenttransport "github.com/Additional-Code/bazaar/internal/transport/http/comment"
	"github.com/Additional-Code/bazaar/internal/transport/http/middleware/auth"
	ordertransport "github.com/Additional-Code/bazaar/internal/transport/http/order"
	pointstransport "github.com/Additional-Code/bazaar/internal/transport/http/points"
	producttransport "github.com/Additional-Code/bazaar/internal/transport/http/product"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	auth.Module,
	ordertransport.Module,
	producttransport.Module,
	pointstransport.Module,
	commenttransport.Module,
)
