package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterOption adds routes or middleware to the engine.
type RouterOption func(*gin.Engine)

// WithMiddleware installs mw after the built-in middleware.
func WithMiddleware(mw gin.HandlerFunc) RouterOption {
	return func(r *gin.Engine) {
		r.Use(mw)
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(r *gin.Engine) {
		r.GET("/metrics", gin.WrapH(h))
	}
}

func NewRouter(h *Handler, opts ...RouterOption) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(h.logger), Recovery(h.logger), CORS())

	for _, opt := range opts {
		opt(r)
	}

	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/news", h.ListNews)
		api.GET("/news/category/:category", h.ListNewsByCategory)
		api.GET("/news/:id", h.GetNews)

		if h.syncStatus != nil {
			api.GET("/sync/status", h.SyncStatus)
		}
		if h.watermark != nil {
			api.POST("/watermark/remove", h.RemoveWatermark)
		}
	}

	admin := api.Group("/admin")
	{
		admin.POST("/news", h.CreateNews)
		admin.PUT("/news/:id", h.UpdateNews)
		admin.DELETE("/news/:id", h.DeleteNews)

		if h.sync != nil {
			admin.POST("/sync", h.TriggerSync)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Route not found")
	})

	return r
}
