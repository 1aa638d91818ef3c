package auth

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bazaar/internal/cache"
	"github.com/Additional-Code/bazaar/internal/config"
	"github.com/Additional-Code/bazaar/internal/entity"
	"github.com/Additional-Code/bazaar/internal/presentation/http/response"
	oplogrepo "github.com/Additional-Code/bazaar/internal/repository/oplog"
	userrepo "github.com/Additional-Code/bazaar/internal/repository/user"
	"github.com/Additional-Code/bazaar/pkg/errorbank"
)

// Level is the access requirement a route declares. Routes state their
// level explicitly; there is no annotation scanning.
type Level int

const (
	LevelAnonymous Level = iota
	LevelLogin
	LevelAdmin
)

const userContextKey = "auth.user"

// userSource resolves tokens to users.
type userSource interface {
	GetByToken(ctx context.Context, token string) (*entity.User, error)
}

// auditLog records one row per handled request.
type auditLog interface {
	Create(ctx context.Context, row *entity.OpLog) error
}

// Middleware resolves token headers to users and enforces route levels.
type Middleware struct {
	users  userSource
	oplogs auditLog
	cache  cache.Store
	cfg    config.Auth
	logger *zap.Logger
}

// Params defines dependencies for constructing Middleware.
type Params struct {
	fx.In

	Users  *userrepo.Repository
	OpLogs *oplogrepo.Repository
	Cache  cache.Store
	Config config.Config
	Logger *zap.Logger
}

// Module provides the access middleware to Fx.
var Module = fx.Provide(NewMiddleware)

// NewMiddleware wires a new Middleware instance.
func NewMiddleware(p Params) *Middleware {
	return &Middleware{
		users:  p.Users,
		oplogs: p.OpLogs,
		cache:  p.Cache,
		cfg:    p.Config.Auth,
		logger: p.Logger,
	}
}

// Require enforces the given access level. On LevelLogin the TOKEN header
// must resolve to any user; on LevelAdmin the ADMINTOKEN header must
// resolve to an admin. The resolved user is stashed on the context.
func (m *Middleware) Require(level Level) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if level == LevelAnonymous {
				return next(c)
			}

			header := m.cfg.TokenHeader
			if level == LevelAdmin {
				header = m.cfg.AdminTokenHeader
			}

			token := c.Request().Header.Get(header)
			user, err := m.resolveToken(c.Request().Context(), token)
			if err != nil {
				if !errors.Is(err, userrepo.ErrNotFound) {
					m.logger.Error("token lookup failed", zap.Error(err))
				}
				return response.New(c).WithError(errorbank.Unauthorized("not signed in")).Build()
			}
			if level == LevelAdmin && !user.IsAdmin() {
				return response.New(c).WithError(errorbank.Unauthorized("no permission for this operation")).Build()
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user the access middleware resolved, or nil on
// anonymous routes.
func CurrentUser(c echo.Context) *entity.User {
	user, _ := c.Get(userContextKey).(*entity.User)
	return user
}

// Audit writes one op-log row per request after the response is sent.
// Failures only log; auditing never fails a request.
func (m *Middleware) Audit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			row := &entity.OpLog{
				IP:        c.RealIP(),
				Method:    req.Method,
				URL:       req.RequestURI,
				UserAgent: req.UserAgent(),
				LatencyMS: time.Since(start).Milliseconds(),
				CreatedAt: time.Now().UTC(),
			}
			if logErr := m.oplogs.Create(req.Context(), row); logErr != nil {
				m.logger.Warn("op log write failed", zap.Error(logErr))
			}

			return err
		}
	}
}

// Recover converts panics into the generic failure envelope, logging the
// full request context and stack. Clients never see a raw stack trace.
func (m *Middleware) Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					req := c.Request()
					m.logger.Error("panic recovered",
						zap.Any("panic", r),
						zap.String("ip", c.RealIP()),
						zap.String("method", req.Method),
						zap.String("url", req.RequestURI),
						zap.ByteString("stack", debug.Stack()),
					)
					err = response.New(c).WithError(errorbank.Internal("internal error")).Build()
				}
			}()
			return next(c)
		}
	}
}

func (m *Middleware) resolveToken(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, userrepo.ErrNotFound
	}

	key := "auth:token:" + token
	var cached entity.User
	if err := cache.GetJSON(ctx, m.cache, key, &cached); err == nil {
		return &cached, nil
	}

	user, err := m.users.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, m.cache, key, user, m.cfg.TokenCacheTTL); err != nil {
		m.logger.Warn("token cache write failed", zap.Error(err))
	}
	return user, nil
}
