package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_portal/internal/domain"
)

type ArticleStore interface {
	Upsert(ctx context.Context, article *domain.Article) (domain.UpsertResult, error)
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Article, int, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Article, error)
	GetByNumericExternalID(ctx context.Context, n int64) (*domain.Article, error)
	GetByID(ctx context.Context, id int64) (*domain.Article, error)
	Create(ctx context.Context, article *domain.Article) error
	Update(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, id int64) error
}

type SyncStateStore interface {
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type Source interface {
	ID() string
	Name() string
	FetchArticles(ctx context.Context) ([]domain.Article, error)
}

type Classifier interface {
	Classify(titleEnglish string) domain.Category
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, article *domain.Article, action domain.ChangeAction) error
	Close() error
}

type ArticleCache interface {
	Get(ctx context.Context, externalID string) (*domain.Article, error)
	Set(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, externalIDs ...string) error
}

type SyncRecorder interface {
	ObserveSync(stats *domain.SyncStats, err error)
}
