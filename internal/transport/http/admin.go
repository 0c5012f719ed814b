package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"news_portal/internal/domain"
)

// articleRequest is the admin payload. Absent fields stay nil so an update
// only touches what the caller sent.
type articleRequest struct {
	ID            *string         `json:"id"`
	TitleSi       *string         `json:"titleSi"`
	TitleEn       *string         `json:"titleEn"`
	Cover         *string         `json:"cover" binding:"omitempty,max=2048"`
	Published     *time.Time      `json:"published"`
	ContentSi     *domain.Content `json:"contentSi"`
	ShareURL      *string         `json:"share_url" binding:"omitempty,max=2048"`
	Category      json.RawMessage `json:"category"`
	CategoryLabel *string         `json:"categoryLabel"`
}

func (r articleRequest) categoryLabel() (*domain.Category, error) {
	if r.CategoryLabel == nil {
		return nil, nil
	}
	c, err := domain.ParseCategory(*r.CategoryLabel)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r articleRequest) createInput() (domain.CreateArticleInput, error) {
	label, err := r.categoryLabel()
	if err != nil {
		return domain.CreateArticleInput{}, err
	}

	in := domain.CreateArticleInput{
		CoverImageURL: r.Cover,
		PublishedAt:   r.Published,
		ShareURL:      r.ShareURL,
		CategoryLabel: label,
	}
	if r.ID != nil {
		in.ExternalID = *r.ID
	}
	if r.TitleSi != nil {
		in.TitleLocalized = *r.TitleSi
	}
	if r.TitleEn != nil {
		in.TitleEnglish = *r.TitleEn
	}
	if r.ContentSi != nil {
		in.Content = *r.ContentSi
	}
	return in, nil
}

func (r articleRequest) patch() (domain.ArticlePatch, error) {
	label, err := r.categoryLabel()
	if err != nil {
		return domain.ArticlePatch{}, err
	}

	return domain.ArticlePatch{
		ExternalID:     r.ID,
		TitleLocalized: r.TitleSi,
		TitleEnglish:   r.TitleEn,
		CoverImageURL:  r.Cover,
		PublishedAt:    r.Published,
		Content:        r.ContentSi,
		ShareURL:       r.ShareURL,
		CategoryRaw:    r.Category,
		CategoryLabel:  label,
	}, nil
}

func (h *Handler) CreateNews(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Error adding news: "+err.Error())
		return
	}

	in, err := req.createInput()
	if err != nil {
		h.failWith(c, err, "News not found")
		return
	}

	article, err := h.news.Create(c.Request.Context(), in)
	if err != nil {
		h.failWith(c, err, "News not found")
		return
	}

	c.JSON(http.StatusCreated, dataResponse{Success: true, Data: article})
}

func (h *Handler) UpdateNews(c *gin.Context) {
	id, ok := storeID(c)
	if !ok {
		return
	}

	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Error updating news: "+err.Error())
		return
	}

	patch, err := req.patch()
	if err != nil {
		h.failWith(c, err, "News not found")
		return
	}

	article, err := h.news.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.failWith(c, err, "News not found")
		return
	}

	c.JSON(http.StatusOK, dataResponse{Success: true, Data: article})
}

func (h *Handler) DeleteNews(c *gin.Context) {
	id, ok := storeID(c)
	if !ok {
		return
	}

	if err := h.news.Delete(c.Request.Context(), id); err != nil {
		h.failWith(c, err, "News not found")
		return
	}

	c.JSON(http.StatusOK, deleteResponse{Success: true, Message: "News deleted successfully"})
}

// storeID parses the internal row id from the path.
func storeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		fail(c, http.StatusBadRequest, "Invalid news id")
		return 0, false
	}
	return id, true
}
