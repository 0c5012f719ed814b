package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_portal/internal/domain"
	"news_portal/internal/transport/http/mocks"
	"news_portal/internal/watermark"
)

type HandlerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	news       *mocks.MockNewsService
	sync       *mocks.MockSyncTrigger
	syncStatus *mocks.MockSyncStatusReader
	watermark  *mocks.MockWatermarkRemover
	db         *mocks.MockHealthChecker

	router *gin.Engine
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctrl = gomock.NewController(s.T())

	s.news = mocks.NewMockNewsService(s.ctrl)
	s.sync = mocks.NewMockSyncTrigger(s.ctrl)
	s.syncStatus = mocks.NewMockSyncStatusReader(s.ctrl)
	s.watermark = mocks.NewMockWatermarkRemover(s.ctrl)
	s.db = mocks.NewMockHealthChecker(s.ctrl)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s.router = NewRouter(NewHandler(Deps{
		News:       s.news,
		Sync:       s.sync,
		SyncStatus: s.syncStatus,
		Watermark:  s.watermark,
		Health:     map[string]HealthChecker{"database": s.db},
		Logger:     logger,
	}))
}

func (s *HandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func articles(n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{
			ID:             int64(i + 1),
			ExternalID:     "ext",
			TitleLocalized: "title",
			CategoryLabel:  domain.CategoryNews,
		}
	}
	return out
}

func (s *HandlerTestSuite) TestListNews() {
	s.news.EXPECT().List(gomock.Any(), 1, 10).Return(&domain.ArticlePage{
		Items:      articles(10),
		Page:       1,
		Limit:      10,
		Total:      25,
		TotalPages: 3,
	}, nil)

	w, body := s.do(http.MethodGet, "/api/news?page=1&limit=10", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, body["success"])
	s.Equal(10.0, body["count"])
	s.Equal(1.0, body["page"])
	s.Equal(3.0, body["totalPages"])
	s.Equal(25.0, body["totalNews"])
	s.Len(body["data"], 10)
	s.NotContains(body, "category")
}

func (s *HandlerTestSuite) TestListNews_MalformedQueryFallsBack() {
	s.news.EXPECT().List(gomock.Any(), 0, 0).Return(&domain.ArticlePage{Items: []domain.Article{}, Page: 1, Limit: 10}, nil)

	w, body := s.do(http.MethodGet, "/api/news?page=abc&limit=", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal([]any{}, body["data"])
}

func (s *HandlerTestSuite) TestListNews_StoreError() {
	s.news.EXPECT().List(gomock.Any(), 0, 0).Return(nil, errors.New("connection refused"))

	w, body := s.do(http.MethodGet, "/api/news", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(false, body["success"])
	s.Equal("Server Error", body["message"])
}

func (s *HandlerTestSuite) TestListNewsByCategory() {
	sports := domain.CategorySports
	s.news.EXPECT().ListByCategory(gomock.Any(), "sports", 2, 0).Return(&domain.ArticlePage{
		Category:   &sports,
		Items:      articles(5),
		Page:       2,
		Limit:      20,
		Total:      25,
		TotalPages: 2,
	}, nil)

	w, body := s.do(http.MethodGet, "/api/news/category/sports?page=2", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("sports", body["category"])
	s.Equal(5.0, body["count"])
	s.Equal(25.0, body["total"])
	s.Equal(25.0, body["totalNews"])
}

func (s *HandlerTestSuite) TestListNewsByCategory_Invalid() {
	s.news.EXPECT().ListByCategory(gomock.Any(), "astrology", 1, 10).Return(nil, domain.ErrInvalidCategory)

	w, body := s.do(http.MethodGet, "/api/news/category/astrology?page=1&limit=10", "")

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid category", body["message"])
}

func (s *HandlerTestSuite) TestGetNews() {
	s.news.EXPECT().Get(gomock.Any(), "42").Return(&domain.Article{ID: 9, ExternalID: "042", TitleLocalized: "t"}, nil)

	w, body := s.do(http.MethodGet, "/api/news/42", "")

	s.Equal(http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	s.Equal("042", data["id"])
	s.Equal(9.0, data["_id"])
}

func (s *HandlerTestSuite) TestGetNews_NotFound() {
	s.news.EXPECT().Get(gomock.Any(), "missing").Return(nil, domain.ErrNotFound)

	w, body := s.do(http.MethodGet, "/api/news/missing", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Article not found", body["message"])
}

func (s *HandlerTestSuite) TestCreateNews() {
	s.news.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in domain.CreateArticleInput) (*domain.Article, error) {
			s.Equal("", in.ExternalID)
			s.Equal("පුවත", in.TitleLocalized)
			s.Equal("https://img.example/a.jpg", *in.CoverImageURL)
			s.Equal([]string{"one", "two"}, in.Content.Paragraphs())
			s.Equal(domain.CategoryLife, *in.CategoryLabel)
			s.Nil(in.PublishedAt)
			return &domain.Article{ID: 1, ExternalID: "custom-1", TitleLocalized: in.TitleLocalized, IsCustom: true, CategoryLabel: domain.CategoryLife}, nil
		},
	)

	w, body := s.do(http.MethodPost, "/api/admin/news",
		`{"titleSi":"පුවත","cover":"https://img.example/a.jpg","contentSi":["one",{"text":"two"}],"categoryLabel":"life"}`)

	s.Equal(http.StatusCreated, w.Code)
	data := body["data"].(map[string]any)
	s.Equal("custom-1", data["id"])
	s.Equal(true, data["isCustom"])
}

func (s *HandlerTestSuite) TestCreateNews_PublishedDate() {
	s.news.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in domain.CreateArticleInput) (*domain.Article, error) {
			s.Require().NotNil(in.PublishedAt)
			s.True(in.PublishedAt.Equal(time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)))
			return &domain.Article{ExternalID: "x"}, nil
		},
	)

	w, _ := s.do(http.MethodPost, "/api/admin/news", `{"id":"x","titleSi":"t","published":"2024-05-01T08:30:00Z"}`)

	s.Equal(http.StatusCreated, w.Code)
}

func (s *HandlerTestSuite) TestCreateNews_InvalidCategoryLabel() {
	w, body := s.do(http.MethodPost, "/api/admin/news", `{"titleSi":"t","categoryLabel":"astrology"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid category", body["message"])
}

func (s *HandlerTestSuite) TestCreateNews_MalformedBody() {
	w, body := s.do(http.MethodPost, "/api/admin/news", `{"titleSi":`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(false, body["success"])
}

func (s *HandlerTestSuite) TestCreateNews_ValidationError() {
	s.news.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.Join(domain.ErrInvalidArticle, errors.New("titleSi is required")))

	w, _ := s.do(http.MethodPost, "/api/admin/news", `{"cover":"x"}`)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestCreateNews_Duplicate() {
	s.news.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrDuplicateExternalID)

	w, _ := s.do(http.MethodPost, "/api/admin/news", `{"id":"123","titleSi":"t"}`)

	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerTestSuite) TestUpdateNews() {
	s.news.EXPECT().Update(gomock.Any(), int64(7), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, patch domain.ArticlePatch) (*domain.Article, error) {
			s.Equal("new title", *patch.TitleLocalized)
			s.Nil(patch.ExternalID)
			s.Nil(patch.Content)
			return &domain.Article{ID: 7, ExternalID: "123", TitleLocalized: "new title", IsCustom: true}, nil
		},
	)

	w, body := s.do(http.MethodPut, "/api/admin/news/7", `{"titleSi":"new title"}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("new title", body["data"].(map[string]any)["titleSi"])
}

func (s *HandlerTestSuite) TestUpdateNews_NotFound() {
	s.news.EXPECT().Update(gomock.Any(), int64(7), gomock.Any()).Return(nil, domain.ErrNotFound)

	w, body := s.do(http.MethodPut, "/api/admin/news/7", `{"titleSi":"t"}`)

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("News not found", body["message"])
}

func (s *HandlerTestSuite) TestUpdateNews_InvalidID() {
	w, body := s.do(http.MethodPut, "/api/admin/news/abc", `{"titleSi":"t"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid news id", body["message"])
}

func (s *HandlerTestSuite) TestDeleteNews() {
	s.news.EXPECT().Delete(gomock.Any(), int64(7)).Return(nil)

	w, body := s.do(http.MethodDelete, "/api/admin/news/7", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("News deleted successfully", body["message"])
	s.Equal(map[string]any{}, body["data"])
}

func (s *HandlerTestSuite) TestDeleteNews_NotFound() {
	s.news.EXPECT().Delete(gomock.Any(), int64(7)).Return(domain.ErrNotFound)

	w, _ := s.do(http.MethodDelete, "/api/admin/news/7", "")

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestTriggerSync() {
	s.sync.EXPECT().TryRunOnce(gomock.Any()).Return(&domain.SyncStats{SourceID: "esena", Fetched: 3, New: 2, Updated: 1}, nil)

	w, body := s.do(http.MethodPost, "/api/admin/sync", "")

	s.Equal(http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	s.Equal(2.0, data["inserted"])
	s.Equal(1.0, data["updated"])
}

func (s *HandlerTestSuite) TestTriggerSync_Error() {
	s.sync.EXPECT().TryRunOnce(gomock.Any()).Return(nil, errors.New("fetch articles: timeout"))

	w, body := s.do(http.MethodPost, "/api/admin/sync", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Sync failed", body["message"])
}

func (s *HandlerTestSuite) TestTriggerSync_AlreadyRunning() {
	s.sync.EXPECT().TryRunOnce(gomock.Any()).Return(nil, domain.ErrSyncInProgress)

	w, body := s.do(http.MethodPost, "/api/admin/sync", "")

	s.Equal(http.StatusConflict, w.Code)
	s.Equal("Sync already in progress", body["message"])
}

func (s *HandlerTestSuite) TestSyncStatus() {
	s.syncStatus.EXPECT().Status(gomock.Any()).Return(&domain.SyncState{SourceID: "esena", TotalSynced: 40}, nil)

	w, body := s.do(http.MethodGet, "/api/sync/status", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal(40.0, body["data"].(map[string]any)["totalSynced"])
}

func (s *HandlerTestSuite) TestRemoveWatermark() {
	s.watermark.EXPECT().Remove(gomock.Any(), "https://img.example/a.jpg").Return("data:image/png;base64,AAA=", nil)

	w, body := s.do(http.MethodPost, "/api/watermark/remove", `{"imageUrl":"https://img.example/a.jpg"}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, body["success"])
	s.Equal("data:image/png;base64,AAA=", body["imageUrl"])
}

func (s *HandlerTestSuite) TestRemoveWatermark_MissingURL() {
	w, body := s.do(http.MethodPost, "/api/watermark/remove", `{}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("imageUrl is required.", body["message"])
}

func (s *HandlerTestSuite) TestRemoveWatermark_UpstreamFailure() {
	s.watermark.EXPECT().Remove(gomock.Any(), gomock.Any()).
		Return("", &watermark.StatusError{Op: "remove watermark", StatusCode: http.StatusTooManyRequests})

	w, body := s.do(http.MethodPost, "/api/watermark/remove", `{"imageUrl":"https://img.example/a.jpg"}`)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Rate limit reached. Please wait a moment and try again.", body["message"])
}

func (s *HandlerTestSuite) TestRemoveWatermark_NotConfigured() {
	s.watermark.EXPECT().Remove(gomock.Any(), gomock.Any()).Return("", watermark.ErrNotConfigured)

	w, body := s.do(http.MethodPost, "/api/watermark/remove", `{"imageUrl":"https://img.example/a.jpg"}`)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Contains(body["message"], "WATERMARK_API_KEY")
}

func (s *HandlerTestSuite) TestHealth() {
	s.db.EXPECT().Ping(gomock.Any()).Return(nil)

	w, body := s.do(http.MethodGet, "/health", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", body["status"])
}

func (s *HandlerTestSuite) TestHealth_Degraded() {
	s.db.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

	w, body := s.do(http.MethodGet, "/health", "")

	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("degraded", body["status"])
	s.Equal("unavailable", body["checks"].(map[string]any)["database"])
}

func (s *HandlerTestSuite) TestPanicReturnsGenericError() {
	s.news.EXPECT().Get(gomock.Any(), "boom").DoAndReturn(
		func(context.Context, string) (*domain.Article, error) {
			panic("nil map")
		},
	)

	w, body := s.do(http.MethodGet, "/api/news/boom", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Internal Server Error", body["message"])
}

func (s *HandlerTestSuite) TestRequestIDAndCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/api/news", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()

	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("req-1", w.Header().Get(RequestIDHeader))
}

func (s *HandlerTestSuite) TestUnknownRoute() {
	w, body := s.do(http.MethodGet, "/api/unknown", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Route not found", body["message"])
}
