package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"news_portal/internal/domain"
)

const (
	DefaultPageLimit     = 10
	DefaultCategoryLimit = 20
	MaxPageLimit         = 100
	// MaxPage bounds the page number so the row offset cannot overflow.
	MaxPage = 1_000_000

	customIDPrefix = "custom-"
)

// ArticleService serves reads and admin writes over the article store.
type ArticleService struct {
	articles  ArticleStore
	txManager TransactionManager
	cache     ArticleCache
	publisher Publisher
	logger    logrus.FieldLogger

	newID func() (string, error)
	now   func() time.Time
}

// NewArticleService builds the read and admin service. cache and publisher may be nil.
func NewArticleService(
	articles ArticleStore,
	txManager TransactionManager,
	cache ArticleCache,
	publisher Publisher,
	logger logrus.FieldLogger,
) *ArticleService {
	return &ArticleService{
		articles:  articles,
		txManager: txManager,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		newID:     newCustomID,
		now:       time.Now,
	}
}

// List returns a newest-first page across all categories.
func (s *ArticleService) List(ctx context.Context, page, limit int) (*domain.ArticlePage, error) {
	return s.list(ctx, nil, page, limit, DefaultPageLimit)
}

// ListByCategory returns a newest-first page of one category.
func (s *ArticleService) ListByCategory(ctx context.Context, category string, page, limit int) (*domain.ArticlePage, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, &c, page, limit, DefaultCategoryLimit)
}

func (s *ArticleService) list(ctx context.Context, category *domain.Category, page, limit, defaultLimit int) (*domain.ArticlePage, error) {
	page, limit = normalizePage(page, limit, defaultLimit)

	items, total, err := s.articles.List(ctx, domain.ListFilter{
		Category: category,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if items == nil {
		items = []domain.Article{}
	}

	return &domain.ArticlePage{
		Category:   category,
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Get finds an article by its external id. A purely numeric key that misses
// falls back to matching numeric external ids, so "42" also finds "042".
func (s *ArticleService) Get(ctx context.Context, externalID string) (*domain.Article, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, externalID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WithError(err).WithField("external_id", externalID).Warn("article cache read failed")
		}
	}

	article, err := s.articles.GetByExternalID(ctx, externalID)
	if errors.Is(err, domain.ErrNotFound) {
		n, parseErr := strconv.ParseInt(externalID, 10, 64)
		if parseErr != nil {
			return nil, domain.ErrNotFound
		}
		article, err = s.articles.GetByNumericExternalID(ctx, n)
	}
	if err != nil {
		return nil, err
	}

	// A writer evicting between the read above and this Set leaves a stale
	// entry until the TTL expires.
	if s.cache != nil {
		if err := s.cache.Set(ctx, article); err != nil {
			s.logger.WithError(err).WithField("external_id", externalID).Warn("article cache write failed")
		}
	}

	return article, nil
}

// Create stores an admin article. Missing id, publish time and category are
// filled in, and the row is marked custom so sync never overwrites it.
func (s *ArticleService) Create(ctx context.Context, in domain.CreateArticleInput) (*domain.Article, error) {
	article := &domain.Article{
		ExternalID:     in.ExternalID,
		TitleLocalized: in.TitleLocalized,
		TitleEnglish:   in.TitleEnglish,
		CoverImageURL:  in.CoverImageURL,
		Content:        in.Content,
		ShareURL:       in.ShareURL,
		CategoryLabel:  domain.CategoryNews,
		IsCustom:       true,
	}

	if article.ExternalID == "" {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		article.ExternalID = id
	}
	if in.PublishedAt != nil {
		article.PublishedAt = in.PublishedAt.UTC()
	} else {
		article.PublishedAt = s.now().UTC()
	}
	if in.CategoryLabel != nil {
		article.CategoryLabel = *in.CategoryLabel
	}

	if err := article.Validate(); err != nil {
		return nil, err
	}

	if err := s.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}

	s.logger.WithField("external_id", article.ExternalID).Info("custom article created")
	s.publish(ctx, article, domain.ActionCreate)

	return article, nil
}

// Update merges patch onto the article with the given internal id. The result
// becomes a custom article.
func (s *ArticleService) Update(ctx context.Context, id int64, patch domain.ArticlePatch) (*domain.Article, error) {
	var (
		article    *domain.Article
		previousID string
	)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.articles.GetByID(ctx, id)
		if err != nil {
			return err
		}
		previousID = existing.ExternalID

		patch.Apply(existing)
		existing.IsCustom = true

		if err := existing.Validate(); err != nil {
			return err
		}
		if err := s.articles.Update(ctx, existing); err != nil {
			return err
		}

		article = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.evict(ctx, previousID, article.ExternalID)
	s.logger.WithField("external_id", article.ExternalID).Info("article updated")
	s.publish(ctx, article, domain.ActionUpdate)

	return article, nil
}

// Delete removes the article with the given internal id.
func (s *ArticleService) Delete(ctx context.Context, id int64) error {
	var article *domain.Article

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.articles.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.articles.Delete(ctx, id); err != nil {
			return err
		}
		article = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.evict(ctx, article.ExternalID)
	s.logger.WithField("external_id", article.ExternalID).Info("article deleted")
	s.publish(ctx, article, domain.ActionDelete)

	return nil
}

func (s *ArticleService) evict(ctx context.Context, externalIDs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, externalIDs...); err != nil {
		s.logger.WithError(err).WithField("external_ids", externalIDs).Warn("failed to evict cached article")
	}
}

func (s *ArticleService) publish(ctx context.Context, article *domain.Article, action domain.ChangeAction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, article, action); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"external_id": article.ExternalID,
			"action":      action,
		}).Warn("failed to publish article change")
	}
}

func newCustomID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return customIDPrefix + id.String(), nil
}
