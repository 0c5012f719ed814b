package esena

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"news_portal/internal/domain"
)

const (
	SourceID   = "esena"
	SourceName = "Esena News"
)

// ErrUnexpectedFormat is returned when the feed answers without news_data.data.
var ErrUnexpectedFormat = domain.ErrUnexpectedFeedFormat

var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Config holds feed source configuration.
type Config struct {
	URL            string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source reads the Esena news feed.
type Source struct {
	httpClient     *http.Client
	url            string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         logrus.FieldLogger
	now            func() time.Time
}

func New(cfg Config, logger logrus.FieldLogger) *Source {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:            cfg.URL,
		maxAttempts:    attempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.WithField("source", SourceID),
		now:            time.Now,
	}
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) Name() string {
	return SourceName
}

// FetchArticles downloads the feed once and converts it to articles in feed
// order. Category labels are left empty for the caller to fill in.
func (s *Source) FetchArticles(ctx context.Context) ([]domain.Article, error) {
	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx)
		if err == nil || errors.Is(err, ErrUnexpectedFormat) {
			break
		}

		if attempt == s.maxAttempts {
			return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": backoff,
		}).Warn("request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithField("articles", len(resp.NewsData.Data)).Debug("fetched feed")

	return s.transform(resp.NewsData.Data), nil
}

func (s *Source) doRequest(ctx context.Context) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsPortal/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	if apiResp.NewsData == nil || apiResp.NewsData.Data == nil {
		return nil, ErrUnexpectedFormat
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if s.maxBackoff > 0 && backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(records []json.RawMessage) []domain.Article {
	articles := make([]domain.Article, 0, len(records))
	ingestedAt := s.now().UTC()

	for i, record := range records {
		var item Item
		if err := json.Unmarshal(record, &item); err != nil {
			s.logger.WithError(err).WithField("index", i).Warn("skipping malformed article")
			continue
		}

		externalID := coerceID(item.ID)
		if externalID == "" {
			s.logger.WithField("title", string(item.TitleSi)).Warn("skipping article without id")
			continue
		}

		article := domain.Article{
			ExternalID:     externalID,
			TitleLocalized: string(item.TitleSi),
			TitleEnglish:   string(item.TitleEn),
			PublishedAt:    ingestedAt,
			Content:        item.ContentSi,
			CategoryRaw:    nullable(item.Category),
		}

		if published, ok := parsePublished(item.Published); ok {
			article.PublishedAt = published
		} else if len(nullable(item.Published)) > 0 {
			s.logger.WithFields(logrus.Fields{
				"external_id": externalID,
				"published":   string(item.Published),
			}).Warn("failed to parse published date")
		}

		switch {
		case item.Cover != "":
			article.CoverImageURL = ptr(string(item.Cover))
		case item.Thumb != "":
			article.CoverImageURL = ptr(string(item.Thumb))
		}

		if item.ShareURL != "" {
			article.ShareURL = ptr(string(item.ShareURL))
		}

		articles = append(articles, article)
	}

	return articles
}

func ptr(s string) *string { return &s }

// coerceID turns a JSON string or number id into its string form.
func coerceID(raw json.RawMessage) string {
	raw = nullable(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

func parsePublished(raw json.RawMessage) (time.Time, bool) {
	raw = nullable(raw)
	if len(raw) == 0 {
		return time.Time{}, false
	}

	if raw[0] != '"' {
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// nullable maps an absent or JSON null value to nil.
func nullable(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}
