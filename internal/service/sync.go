package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"news_portal/internal/domain"
)

type SyncService struct {
	source     Source
	articles   ArticleStore
	syncState  SyncStateStore
	classifier Classifier
	publisher  Publisher
	cache      ArticleCache
	recorder   SyncRecorder
	logger     logrus.FieldLogger
}

// NewSyncService wires a sync cycle. publisher, cache and recorder may be nil.
func NewSyncService(
	source Source,
	articles ArticleStore,
	syncState SyncStateStore,
	classifier Classifier,
	publisher Publisher,
	cache ArticleCache,
	recorder SyncRecorder,
	logger logrus.FieldLogger,
) *SyncService {
	return &SyncService{
		source:     source,
		articles:   articles,
		syncState:  syncState,
		classifier: classifier,
		publisher:  publisher,
		cache:      cache,
		recorder:   recorder,
		logger:     logger.WithField("source", source.ID()),
	}
}

// Sync runs one fetch-classify-upsert pass over the feed. A feed without the
// expected envelope yields empty stats and no error. A failing record is
// counted in Errors and the remaining records are still processed.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	s.logger.WithField("source_name", s.source.Name()).Info("starting sync")

	stats := &domain.SyncStats{SourceID: s.source.ID()}

	articles, err := s.source.FetchArticles(ctx)
	if errors.Is(err, domain.ErrUnexpectedFeedFormat) {
		s.logger.WithError(err).Warn("unexpected feed response format, nothing to sync")
		stats.Duration = time.Since(startTime)
		s.observe(stats, nil)
		return stats, nil
	}
	if err != nil {
		err = fmt.Errorf("fetch articles: %w", err)
		s.observe(nil, err)
		return nil, err
	}

	stats.Fetched = len(articles)
	s.logger.WithField("count", len(articles)).Info("fetched articles from source")

	for i := range articles {
		article := &articles[i]
		article.CategoryLabel = s.classifier.Classify(article.TitleEnglish)
		article.IsCustom = false

		result, err := s.articles.Upsert(ctx, article)
		if err != nil {
			stats.Errors++
			s.logger.WithError(err).WithField("external_id", article.ExternalID).Warn("failed to upsert article")
			continue
		}

		var action domain.ChangeAction
		switch result {
		case domain.UpsertInserted:
			stats.New++
			action = domain.ActionCreate
		case domain.UpsertUpdated:
			stats.Updated++
			action = domain.ActionUpdate
			s.evict(ctx, article.ExternalID)
		default:
			stats.Skipped++
			s.logger.WithField("external_id", article.ExternalID).Debug("custom article owns this id, skipped")
			continue
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, article, action); err != nil {
				stats.Errors++
				s.logger.WithError(err).WithField("external_id", article.ExternalID).Warn("failed to publish article")
			} else {
				stats.Published++
			}
		}
	}

	if err := s.updateSyncState(ctx, stats); err != nil {
		err = fmt.Errorf("update sync state: %w", err)
		s.observe(stats, err)
		return stats, err
	}

	stats.Duration = time.Since(startTime)

	s.logger.WithFields(logrus.Fields{
		"inserted":  stats.New,
		"updated":   stats.Updated,
		"skipped":   stats.Skipped,
		"errors":    stats.Errors,
		"published": stats.Published,
		"duration":  stats.Duration,
	}).Info("sync completed")

	s.observe(stats, nil)
	return stats, nil
}

// Status returns the persisted outcome of the last completed cycle.
func (s *SyncService) Status(ctx context.Context) (*domain.SyncState, error) {
	return s.syncState.Get(ctx, s.source.ID())
}

func (s *SyncService) updateSyncState(ctx context.Context, stats *domain.SyncStats) error {
	state, err := s.syncState.Get(ctx, s.source.ID())
	if err != nil {
		return err
	}

	state.SourceID = s.source.ID()
	state.LastSyncedAt = time.Now().UTC()
	state.LastInserted = int64(stats.New)
	state.LastUpdated = int64(stats.Updated)
	state.TotalSynced += int64(stats.New + stats.Updated)

	return s.syncState.Update(ctx, state)
}

func (s *SyncService) evict(ctx context.Context, externalID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, externalID); err != nil {
		s.logger.WithError(err).WithField("external_id", externalID).Warn("failed to evict cached article")
	}
}

func (s *SyncService) observe(stats *domain.SyncStats, err error) {
	if s.recorder != nil {
		s.recorder.ObserveSync(stats, err)
	}
}
