package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hcplat/mockapi/internal/engine"
	"github.com/hcplat/mockapi/internal/stats"
	"github.com/hcplat/mockapi/internal/storage"
	"github.com/hcplat/mockapi/internal/txlog"
)

// Router wires the admin API and the mock dispatch surface
type Router struct {
	gin      *gin.Engine
	handler  *Handler
	dispatch *Dispatcher
	txlog    *txlog.Service
	log      *logrus.Logger
}

// NewRouter creates a new router
func NewRouter(store storage.Store, eng *engine.Engine, txs *txlog.Service, collector *stats.Collector, log *logrus.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		gin:      gin.New(),
		handler:  NewHandler(store, txs, collector, log),
		dispatch: NewDispatcher(store, eng, log),
		txlog:    txs,
		log:      log,
	}

	r.gin.Use(gin.Recovery())
	r.gin.Use(corsMiddleware())

	r.setupRoutes()

	return r
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	api := r.gin.Group("/_api")
	{
		// Projects
		api.GET("/projects", r.handler.ListProjects)
		api.POST("/projects", r.handler.CreateProject)
		api.GET("/projects/:id", r.handler.GetProject)
		api.PUT("/projects/:id", r.handler.UpdateProject)
		api.DELETE("/projects/:id", r.handler.DeleteProject)

		// Rules
		api.GET("/projects/:id/rules", r.handler.ListRules)
		api.POST("/projects/:id/rules", r.handler.CreateRule)
		api.POST("/projects/:id/import", r.handler.ImportOpenAPI)
		api.GET("/rules/:id", r.handler.GetRule)
		api.PUT("/rules/:id", r.handler.UpdateRule)
		api.PUT("/rules/:id/toggle", r.handler.ToggleRule)
		api.DELETE("/rules/:id", r.handler.DeleteRule)

		// Transaction log
		api.GET("/logs", r.handler.ListTransactions)
		api.GET("/logs/:id", r.handler.GetTransaction)
		api.DELETE("/logs", r.handler.ClearTransactions)

		// Statistics
		api.GET("/stats", r.handler.GetStats)
		api.GET("/projects/:id/stats", r.handler.GetProjectStats)
		api.POST("/stats/reset", r.handler.ResetStats)

		// Health
		api.GET("/health", r.handler.HealthCheck)
	}

	// WebSocket for live transaction streaming
	wsHandler := txlog.NewWebSocketHandler(r.txlog, r.log)
	r.gin.GET("/_api/logs/stream", gin.WrapH(wsHandler))

	// Everything else is the mock surface
	r.gin.NoRoute(r.dispatch.Handle)
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.gin
}

// corsMiddleware adds CORS headers for the admin surface
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
