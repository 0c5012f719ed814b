package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListNews(c *gin.Context) {
	page, limit := pagination(c)

	result, err := h.news.List(c.Request.Context(), page, limit)
	if err != nil {
		h.failWith(c, err, "News not found")
		return
	}

	c.JSON(http.StatusOK, newListResponse(result))
}

func (h *Handler) ListNewsByCategory(c *gin.Context) {
	page, limit := pagination(c)

	result, err := h.news.ListByCategory(c.Request.Context(), c.Param("category"), page, limit)
	if err != nil {
		h.failWith(c, err, "News not found")
		return
	}

	c.JSON(http.StatusOK, newListResponse(result))
}

func (h *Handler) GetNews(c *gin.Context) {
	article, err := h.news.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failWith(c, err, "Article not found")
		return
	}

	c.JSON(http.StatusOK, dataResponse{Success: true, Data: article})
}

// pagination reads page and limit; missing or malformed values become 0 and
// are defaulted by the service.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}
