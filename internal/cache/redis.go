package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"news_portal/internal/domain"
)

const defaultKeyPrefix = "news:article:"

type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// ArticleCache keeps single-article lookups in Redis, keyed by external id.
type ArticleCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewArticleCache(client *redis.Client, ttl time.Duration, prefix string) *ArticleCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &ArticleCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func (c *ArticleCache) key(externalID string) string {
	return c.prefix + externalID
}

func (c *ArticleCache) Get(ctx context.Context, externalID string) (*domain.Article, error) {
	data, err := c.client.Get(ctx, c.key(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cached article: %w", err)
	}

	var article domain.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return nil, fmt.Errorf("decode cached article: %w", err)
	}

	return &article, nil
}

func (c *ArticleCache) Set(ctx context.Context, article *domain.Article) error {
	data, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("encode article: %w", err)
	}

	if err := c.client.Set(ctx, c.key(article.ExternalID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached article: %w", err)
	}

	return nil
}

func (c *ArticleCache) Delete(ctx context.Context, externalIDs ...string) error {
	if len(externalIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(externalIDs))
	for _, id := range externalIDs {
		keys = append(keys, c.key(id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cached articles: %w", err)
	}

	return nil
}

func (c *ArticleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
