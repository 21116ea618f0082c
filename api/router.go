package api

import (
	"net/http"

	"orderhub/api/health"
	"orderhub/api/middleware"
	"orderhub/api/order"
	"orderhub/api/payment"
	"orderhub/api/user"
	"orderhub/api/ws"
	"orderhub/config"

	"github.com/gin-gonic/gin"
)

// Controllers groups everything the router mounts.
type Controllers struct {
	Health  *health.Controller
	User    *user.Controller
	Order   *order.Controller
	Payment *payment.Controller

	CustomerSocket *ws.Handler
	MerchantSocket *ws.Handler
}

type Router struct {
	engine      *gin.Engine
	config      *config.Config
	controllers Controllers
}

func NewRouter(cfg *config.Config, controllers Controllers) *Router {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Order matters: the request id must exist before anything logs.
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RecoveryMiddleware())
	engine.Use(middleware.LoggingMiddleware())
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit))

	return &Router{engine: engine, config: cfg, controllers: controllers}
}

func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	{
		r.controllers.Health.RegisterRoutes(apiGroup)
		r.controllers.User.RegisterRoutes(apiGroup)
		r.controllers.Order.RegisterRoutes(apiGroup)
		r.controllers.Payment.RegisterRoutes(apiGroup)
	}

	r.engine.GET("/ws/order/:userId", r.controllers.CustomerSocket.Serve("userId"))
	r.engine.GET("/ws/admin/:adminId", r.controllers.MerchantSocket.Serve("adminId"))

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
		})
	})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Handler is the engine wrapped in the CORS layer; serve this one.
func (r *Router) Handler() http.Handler {
	return middleware.CORS(&r.config.CORS, r.engine)
}
