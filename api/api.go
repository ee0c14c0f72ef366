package api

import (
	"github.com/gin-gonic/gin"

	payrouter "github.com/routepay/payrouter"
	"github.com/routepay/payrouter/api/middleware"
	"github.com/routepay/payrouter/config"
)

type Api struct {
	engine *payrouter.PayRouter
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/payouts", a.CreatePayout)
	router.GET("/payouts", a.ListPayouts)
	router.GET("/payouts/:id", a.GetPayout)
	router.POST("/payouts/:id/dispatch", a.DispatchPayout)
	router.POST("/payouts/:id/reconcile", a.ReconcilePayout)
	router.POST("/payouts/:id/cancel", a.CancelPayout)
	router.POST("/payouts/:id/refund", a.RefundPayout)

	router.POST("/batches", a.SubmitBatch)
	router.GET("/batches/:id", a.GetBatch)

	router.GET("/routes/health", a.RoutesHealth)
	router.GET("/routes/analytics", a.RoutesAnalytics)
	router.GET("/routes/:id/analytics", a.RouteAnalytics)
	router.PUT("/routes/:id/offline", a.SetRouteOffline)

	return a.router
}

func NewAPI(engine *payrouter.PayRouter) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{engine: engine, router: r}
}
