package http

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_portal/internal/domain"
)

type NewsService interface {
	List(ctx context.Context, page int, limit int) (*domain.ArticlePage, error)
	ListByCategory(ctx context.Context, category string, page int, limit int) (*domain.ArticlePage, error)
	Get(ctx context.Context, externalID string) (*domain.Article, error)
	Create(ctx context.Context, in domain.CreateArticleInput) (*domain.Article, error)
	Update(ctx context.Context, id int64, patch domain.ArticlePatch) (*domain.Article, error)
	Delete(ctx context.Context, id int64) error
}

// SyncTrigger runs one sync cycle on demand without queueing behind a
// running one.
type SyncTrigger interface {
	TryRunOnce(ctx context.Context) (*domain.SyncStats, error)
}

type SyncStatusReader interface {
	Status(ctx context.Context) (*domain.SyncState, error)
}

type WatermarkRemover interface {
	Remove(ctx context.Context, imageURL string) (string, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
