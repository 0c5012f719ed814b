package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"news_portal/internal/domain"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type listResponse struct {
	Success    bool             `json:"success"`
	Category   *domain.Category `json:"category,omitempty"`
	Count      int              `json:"count"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	TotalNews  int              `json:"totalNews"`
	Total      *int             `json:"total,omitempty"`
	Data       []domain.Article `json:"data"`
}

type deleteResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    struct{} `json:"data"`
}

type watermarkResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
}

func newListResponse(page *domain.ArticlePage) listResponse {
	resp := listResponse{
		Success:    true,
		Category:   page.Category,
		Count:      len(page.Items),
		Page:       page.Page,
		TotalPages: page.TotalPages,
		TotalNews:  page.Total,
		Data:       page.Items,
	}
	if page.Category != nil {
		total := page.Total
		resp.Total = &total
	}
	return resp
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Message: message})
}

// failWith maps a service error to a status code. Unknown errors are logged
// and answered with a generic message.
func (h *Handler) failWith(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCategory):
		fail(c, http.StatusBadRequest, "Invalid category")
	case errors.Is(err, domain.ErrInvalidArticle):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, notFound)
	case errors.Is(err, domain.ErrDuplicateExternalID):
		fail(c, http.StatusConflict, "News with this id already exists")
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(requestIDKey),
		}).Error("request failed")
		fail(c, http.StatusInternalServerError, "Server Error")
	}
}
