package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"news_portal/internal/watermark"
)

type watermarkRequest struct {
	ImageURL string `json:"imageUrl" binding:"required"`
}

func (h *Handler) RemoveWatermark(c *gin.Context) {
	var req watermarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "imageUrl is required.")
		return
	}

	dataURL, err := h.watermark.Remove(c.Request.Context(), req.ImageURL)
	if err != nil {
		h.logger.WithError(err).WithField("image_url", req.ImageURL).Error("watermark removal failed")
		fail(c, http.StatusInternalServerError, watermark.UserMessage(err))
		return
	}

	c.JSON(http.StatusOK, watermarkResponse{Success: true, ImageURL: dataURL})
}
