package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps lists the collaborators behind the HTTP API. Sync, SyncStatus and
// Watermark are optional; their routes are omitted when nil.
type Deps struct {
	News       NewsService
	Sync       SyncTrigger
	SyncStatus SyncStatusReader
	Watermark  WatermarkRemover
	Health     map[string]HealthChecker
	Logger     logrus.FieldLogger
}

type Handler struct {
	news       NewsService
	sync       SyncTrigger
	syncStatus SyncStatusReader
	watermark  WatermarkRemover
	health     map[string]HealthChecker
	logger     logrus.FieldLogger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		news:       d.News,
		sync:       d.Sync,
		syncStatus: d.SyncStatus,
		watermark:  d.Watermark,
		health:     d.Health,
		logger:     d.Logger,
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health pings every registered dependency.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.health))}
	status := http.StatusOK

	for name, checker := range h.health {
		if err := checker.Ping(ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("health check failed")
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(status, resp)
}
