package http_init

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	http_access_middleware "github.com/humanbelnik/boardmate/internal/delivery/http/middleware/access"
	"github.com/rs/zerolog"
)

const apiPrefix = "/api/v1"

type Controller interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type ControllerPool struct {
	pool   []Controller
	rg     *gin.RouterGroup
	engine *gin.Engine
	server *http.Server
	logger zerolog.Logger
}

func NewControllerPool(mode string, logger zerolog.Logger) *ControllerPool {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), cors.Default())
	engine.Use(http_access_middleware.ReadOnlyBadGatewayMiddleware(mode))

	rg := engine.Group(apiPrefix)
	return &ControllerPool{
		pool:   make([]Controller, 0, 10),
		rg:     rg,
		engine: engine,
		logger: logger,
	}
}

func (pool *ControllerPool) Add(c Controller) {
	pool.pool = append(pool.pool, c)
}

func (pool *ControllerPool) Register() {
	for _, c := range pool.pool {
		c.RegisterRoutes(pool.rg)
	}
}

func (pool *ControllerPool) Handler() http.Handler {
	return pool.engine
}

func (pool *ControllerPool) Bind(host, port string) {
	pool.server = &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           pool.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// RunAll blocks until the server stops. It returns nil after Shutdown.
// Bind must be called first.
func (pool *ControllerPool) RunAll() error {
	pool.logger.Info().Str("addr", pool.server.Addr).Msg("http server started")
	if err := pool.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (pool *ControllerPool) Shutdown(ctx context.Context) error {
	if pool.server == nil {
		return nil
	}
	return pool.server.Shutdown(ctx)
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		logger.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.FullPath()).
			Int("status", ctx.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
