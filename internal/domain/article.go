package domain

import (
	"encoding/json"
	"time"
)

type Article struct {
	ID             int64           `json:"_id"`
	ExternalID     string          `json:"id"`
	TitleLocalized string          `json:"titleSi"`
	TitleEnglish   string          `json:"titleEn"`
	CoverImageURL  *string         `json:"cover,omitempty"`
	PublishedAt    time.Time       `json:"published"`
	Content        Content         `json:"contentSi"`
	ShareURL       *string         `json:"share_url,omitempty"`
	CategoryRaw    json.RawMessage `json:"category,omitempty"`
	CategoryLabel  Category        `json:"categoryLabel"`
	IsCustom       bool            `json:"isCustom"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Validate checks the fields every stored article must carry.
func (a *Article) Validate() error {
	if a.ExternalID == "" {
		return invalid("id is required")
	}
	if a.TitleLocalized == "" {
		return invalid("titleSi is required")
	}
	if !a.CategoryLabel.Valid() {
		return invalid("categoryLabel must be one of " + categoryList())
	}
	return nil
}

// UpsertResult reports what an upsert did with the row keyed by external id.
type UpsertResult int

const (
	UpsertInserted UpsertResult = iota
	UpsertUpdated
	// UpsertSkipped means the external id belongs to a custom article.
	UpsertSkipped
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertInserted:
		return "inserted"
	case UpsertUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// ListFilter selects a newest-first window of articles.
type ListFilter struct {
	Category *Category
	Offset   int
	Limit    int
}

type ArticlePage struct {
	Category   *Category
	Items      []Article
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// CreateArticleInput carries an admin-created article.
type CreateArticleInput struct {
	ExternalID     string
	TitleLocalized string
	TitleEnglish   string
	CoverImageURL  *string
	PublishedAt    *time.Time
	Content        Content
	ShareURL       *string
	CategoryLabel  *Category
}

// ArticlePatch holds the fields an admin update supplies; nil means keep.
type ArticlePatch struct {
	ExternalID     *string
	TitleLocalized *string
	TitleEnglish   *string
	CoverImageURL  *string
	PublishedAt    *time.Time
	Content        *Content
	ShareURL       *string
	CategoryRaw    json.RawMessage
	CategoryLabel  *Category
}

// Apply merges the patch onto a.
func (p ArticlePatch) Apply(a *Article) {
	if p.ExternalID != nil {
		a.ExternalID = *p.ExternalID
	}
	if p.TitleLocalized != nil {
		a.TitleLocalized = *p.TitleLocalized
	}
	if p.TitleEnglish != nil {
		a.TitleEnglish = *p.TitleEnglish
	}
	if p.CoverImageURL != nil {
		a.CoverImageURL = p.CoverImageURL
	}
	if p.PublishedAt != nil {
		a.PublishedAt = *p.PublishedAt
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.ShareURL != nil {
		a.ShareURL = p.ShareURL
	}
	if p.CategoryRaw != nil {
		a.CategoryRaw = p.CategoryRaw
	}
	if p.CategoryLabel != nil {
		a.CategoryLabel = *p.CategoryLabel
	}
}

// ChangeAction names an article change event.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)
