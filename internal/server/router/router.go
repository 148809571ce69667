package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted on the engine. A nil Webhook
// leaves the WhatsApp routes unmounted.
type Handlers struct {
	Webhook   *handlers.WebhookHandler
	Flocks    *handlers.FlockHandler
	Health    *handlers.HealthHandler
	Inventory *handlers.InventoryHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
	}

	api := r.Group("/api")

	flocks := api.Group("/flocks")
	flocks.POST("", h.Flocks.Create)
	flocks.GET("", h.Flocks.List)
	flocks.GET("/:id", h.Flocks.Get)
	flocks.POST("/:id/close", h.Flocks.Close)
	flocks.POST("/:id/logs", h.Flocks.RecordLog)
	flocks.GET("/:id/logs", h.Flocks.ListLogs)
	flocks.GET("/:id/summary", h.Flocks.Summary)
	flocks.GET("/:id/overview", h.Flocks.Overview)
	flocks.GET("/:id/chart.png", h.Flocks.Chart)
	flocks.POST("/:id/analysis", h.Flocks.Analyze)
	flocks.POST("/:id/export", h.Flocks.Export)
	flocks.GET("/:id/vaccinations", h.Health.List)
	flocks.POST("/:id/vaccinations", h.Health.Schedule)
	flocks.POST("/:id/vaccinations/program", h.Health.ApplyProgram)

	vaccinations := api.Group("/vaccinations")
	vaccinations.GET("/calendar", h.Health.Calendar)
	vaccinations.POST("/:id/administer", h.Health.Administer)

	inventory := api.Group("/inventory")
	inventory.GET("", h.Inventory.List)
	inventory.GET("/low", h.Inventory.Low)
	inventory.PUT("/:id", h.Inventory.Put)
	inventory.POST("/:id/adjust", h.Inventory.Adjust)

	if logger != nil {
		logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
