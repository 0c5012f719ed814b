package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_portal/internal/domain"
)

const uniqueViolation = "23505"

const articleColumns = `
	id, external_id, title_si, title_en, cover, published_at, content,
	share_url, category_raw, category_label, is_custom, created_at, updated_at`

type articleRow struct {
	ID            int64     `db:"id"`
	ExternalID    string    `db:"external_id"`
	TitleSi       string    `db:"title_si"`
	TitleEn       string    `db:"title_en"`
	Cover         *string   `db:"cover"`
	PublishedAt   time.Time `db:"published_at"`
	Content       []byte    `db:"content"`
	ShareURL      *string   `db:"share_url"`
	CategoryRaw   []byte    `db:"category_raw"`
	CategoryLabel string    `db:"category_label"`
	IsCustom      bool      `db:"is_custom"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *articleRow) toDomain() (*domain.Article, error) {
	a := &domain.Article{
		ID:             r.ID,
		ExternalID:     r.ExternalID,
		TitleLocalized: r.TitleSi,
		TitleEnglish:   r.TitleEn,
		CoverImageURL:  r.Cover,
		PublishedAt:    r.PublishedAt,
		ShareURL:       r.ShareURL,
		CategoryLabel:  domain.Category(r.CategoryLabel),
		IsCustom:       r.IsCustom,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if len(r.Content) > 0 {
		if err := json.Unmarshal(r.Content, &a.Content); err != nil {
			return nil, fmt.Errorf("decode content of article %d: %w", r.ID, err)
		}
	}
	if len(r.CategoryRaw) > 0 {
		a.CategoryRaw = json.RawMessage(append([]byte(nil), r.CategoryRaw...))
	}
	return a, nil
}

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Upsert writes a synced article keyed by external id. Rows owned by the
// admin path (is_custom) are left untouched and reported as skipped.
func (s *ArticleStore) Upsert(ctx context.Context, article *domain.Article) (domain.UpsertResult, error) {
	query := `
		INSERT INTO articles (
			external_id, title_si, title_en, cover, published_at, content,
			share_url, category_raw, category_label, is_custom
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE
		)
		ON CONFLICT (external_id) DO UPDATE SET
			title_si = EXCLUDED.title_si,
			title_en = EXCLUDED.title_en,
			cover = EXCLUDED.cover,
			published_at = EXCLUDED.published_at,
			content = EXCLUDED.content,
			share_url = EXCLUDED.share_url,
			category_raw = EXCLUDED.category_raw,
			category_label = EXCLUDED.category_label,
			is_custom = FALSE,
			updated_at = NOW()
		WHERE articles.is_custom = FALSE
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	content, err := contentParam(article.Content)
	if err != nil {
		return domain.UpsertSkipped, err
	}

	var inserted bool
	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		article.ExternalID,
		article.TitleLocalized,
		article.TitleEnglish,
		article.CoverImageURL,
		article.PublishedAt,
		content,
		article.ShareURL,
		rawParam(article.CategoryRaw),
		string(article.CategoryLabel),
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt, &inserted)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.UpsertSkipped, nil
	}
	if err != nil {
		return domain.UpsertSkipped, err
	}

	article.IsCustom = false
	if inserted {
		return domain.UpsertInserted, nil
	}
	return domain.UpsertUpdated, nil
}

// List returns one newest-first page and the total number of matching rows.
func (s *ArticleStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Article, int, error) {
	exec := GetExecutor(ctx, s.db)

	where := ""
	var args []interface{}
	if filter.Category != nil {
		where = " WHERE category_label = $1"
		args = append(args, string(*filter.Category))
	}

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, "SELECT COUNT(*) FROM articles"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	n := len(args)
	query := "SELECT" + articleColumns + " FROM articles" + where +
		" ORDER BY published_at DESC, id DESC" +
		" LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
	args = append(args, filter.Limit, filter.Offset)

	var rows []articleRow
	if err := sqlx.SelectContext(ctx, exec, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("select articles: %w", err)
	}

	articles := make([]domain.Article, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, *a)
	}
	return articles, total, nil
}

func (s *ArticleStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Article, error) {
	return s.getOne(ctx, "SELECT"+articleColumns+" FROM articles WHERE external_id = $1", externalID)
}

// GetByNumericExternalID matches external ids that are integers equal to n,
// so "042" and "42" both resolve for n = 42.
func (s *ArticleStore) GetByNumericExternalID(ctx context.Context, n int64) (*domain.Article, error) {
	query := "SELECT" + articleColumns + ` FROM articles
		WHERE CASE WHEN external_id ~ '^-?[0-9]{1,18}$' THEN external_id::BIGINT = $1 ELSE FALSE END
		ORDER BY id
		LIMIT 1`
	return s.getOne(ctx, query, n)
}

// GetByID locks the row when called inside a transaction.
func (s *ArticleStore) GetByID(ctx context.Context, id int64) (*domain.Article, error) {
	query := "SELECT" + articleColumns + " FROM articles WHERE id = $1"
	if GetTxFromContext(ctx) != nil {
		query += " FOR UPDATE"
	}
	return s.getOne(ctx, query, id)
}

func (s *ArticleStore) getOne(ctx context.Context, query string, arg interface{}) (*domain.Article, error) {
	var row articleRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (s *ArticleStore) Create(ctx context.Context, article *domain.Article) error {
	query := `
		INSERT INTO articles (
			external_id, title_si, title_en, cover, published_at, content,
			share_url, category_raw, category_label, is_custom
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING id, created_at, updated_at`

	content, err := contentParam(article.Content)
	if err != nil {
		return err
	}

	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		article.ExternalID,
		article.TitleLocalized,
		article.TitleEnglish,
		article.CoverImageURL,
		article.PublishedAt,
		content,
		article.ShareURL,
		rawParam(article.CategoryRaw),
		string(article.CategoryLabel),
		article.IsCustom,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)

	return translate(err)
}

// Update replaces every mutable column of the row identified by article.ID.
func (s *ArticleStore) Update(ctx context.Context, article *domain.Article) error {
	query := `
		UPDATE articles SET
			external_id = $2,
			title_si = $3,
			title_en = $4,
			cover = $5,
			published_at = $6,
			content = $7,
			share_url = $8,
			category_raw = $9,
			category_label = $10,
			is_custom = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	content, err := contentParam(article.Content)
	if err != nil {
		return err
	}

	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		article.ID,
		article.ExternalID,
		article.TitleLocalized,
		article.TitleEnglish,
		article.CoverImageURL,
		article.PublishedAt,
		content,
		article.ShareURL,
		rawParam(article.CategoryRaw),
		string(article.CategoryLabel),
		article.IsCustom,
	).Scan(&article.CreatedAt, &article.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return translate(err)
}

func (s *ArticleStore) Delete(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *ArticleStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrDuplicateExternalID
	}
	return err
}

// lib/pq sends []byte as bytea, so JSONB values go over the wire as text.
func contentParam(c domain.Content) (interface{}, error) {
	if c.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return string(b), nil
}

func rawParam(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
