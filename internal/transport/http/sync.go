package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"news_portal/internal/domain"
)

// TriggerSync runs one sync cycle and returns its stats. It answers 409 when
// a cycle is already running.
func (h *Handler) TriggerSync(c *gin.Context) {
	stats, err := h.sync.TryRunOnce(c.Request.Context())
	if errors.Is(err, domain.ErrSyncInProgress) {
		fail(c, http.StatusConflict, "Sync already in progress")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("manual sync failed")
		fail(c, http.StatusInternalServerError, "Sync failed")
		return
	}

	c.JSON(http.StatusOK, dataResponse{Success: true, Data: stats})
}

func (h *Handler) SyncStatus(c *gin.Context) {
	state, err := h.syncStatus.Status(c.Request.Context())
	if err != nil {
		h.failWith(c, err, "Sync status not found")
		return
	}

	c.JSON(http.StatusOK, dataResponse{Success: true, Data: state})
}
