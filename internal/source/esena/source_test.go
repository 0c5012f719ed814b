package esena

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, url string, attempts int) *Source {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	src := New(Config{
		URL:            url,
		Timeout:        2 * time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, logger)
	return src
}

func serve(body string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchArticles_Transform(t *testing.T) {
	body := `{"news_data": {"data": [
		{"id": 123, "titleSi": "සිංහල", "titleEn": "Cricket final", "cover": "https://img/c.jpg",
		 "published": "2024-05-01T10:00:00Z", "contentSi": ["p1", {"data": "p2"}], "share_url": "https://s/123", "category": 4},
		{"id": "abc", "titleSi": "දෙවන", "thumb": "https://img/t.jpg", "contentSi": "body"},
		{"titleSi": "no id"}
	]}}`
	server := serve(body, http.StatusOK)
	defer server.Close()

	src := newTestSource(t, server.URL, 1)
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return fixed }

	articles, err := src.FetchArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "123", first.ExternalID)
	assert.Equal(t, "සිංහල", first.TitleLocalized)
	assert.Equal(t, "Cricket final", first.TitleEnglish)
	require.NotNil(t, first.CoverImageURL)
	assert.Equal(t, "https://img/c.jpg", *first.CoverImageURL)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), first.PublishedAt)
	assert.Equal(t, []string{"p1", "p2"}, first.Content.Paragraphs())
	require.NotNil(t, first.ShareURL)
	assert.JSONEq(t, `4`, string(first.CategoryRaw))
	assert.Empty(t, first.CategoryLabel)

	second := articles[1]
	assert.Equal(t, "abc", second.ExternalID)
	require.NotNil(t, second.CoverImageURL)
	assert.Equal(t, "https://img/t.jpg", *second.CoverImageURL)
	assert.Equal(t, fixed, second.PublishedAt)
	assert.Nil(t, second.ShareURL)
	assert.Nil(t, second.CategoryRaw)
	assert.False(t, second.Content.IsList())
}

func TestFetchArticles_SkipsMalformedRecord(t *testing.T) {
	body := `{"news_data": {"data": [
		{"id": 1, "titleSi": "first", "share_url": "https://s/1"},
		{"id": 2, "titleSi": {"si": "bad"}},
		{"id": 3, "titleSi": "third", "share_url": 12345}
	]}}`
	server := serve(body, http.StatusOK)
	defer server.Close()

	articles, err := newTestSource(t, server.URL, 1).FetchArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "1", articles[0].ExternalID)
	assert.Equal(t, "3", articles[1].ExternalID)
	assert.Equal(t, "third", articles[1].TitleLocalized)
	require.NotNil(t, articles[1].ShareURL)
	assert.Equal(t, "12345", *articles[1].ShareURL)
}

func TestFetchArticles_UnexpectedFormat(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"news_data": {}}`,
		`{"news_data": {"data": null}}`,
		`not json`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			server := serve(body, http.StatusOK)
			defer server.Close()

			_, err := newTestSource(t, server.URL, 3).FetchArticles(context.Background())
			assert.ErrorIs(t, err, ErrUnexpectedFormat)
		})
	}
}

func TestFetchArticles_EmptyList(t *testing.T) {
	server := serve(`{"news_data": {"data": []}}`, http.StatusOK)
	defer server.Close()

	articles, err := newTestSource(t, server.URL, 1).FetchArticles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestFetchArticles_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"news_data": map[string]any{"data": []map[string]any{{"id": 1, "titleSi": "t"}}},
		})
	}))
	defer server.Close()

	articles, err := newTestSource(t, server.URL, 2).FetchArticles(context.Background())
	require.NoError(t, err)
	assert.Len(t, articles, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchArticles_SingleAttemptFails(t *testing.T) {
	server := serve(`oops`, http.StatusInternalServerError)
	defer server.Close()

	_, err := newTestSource(t, server.URL, 1).FetchArticles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status: 500")
	assert.NotErrorIs(t, err, ErrUnexpectedFormat)
}

func TestParsePublished(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{`"2024-01-02 03:04:05"`, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{`"2024-01-02"`, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{`1704164645000`, time.UnixMilli(1704164645000).UTC(), true},
		{`"yesterday"`, time.Time{}, false},
		{`null`, time.Time{}, false},
		{``, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parsePublished(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceID(t *testing.T) {
	assert.Equal(t, "42", coerceID(json.RawMessage(`42`)))
	assert.Equal(t, "x-1", coerceID(json.RawMessage(`"x-1"`)))
	assert.Equal(t, "", coerceID(json.RawMessage(`null`)))
	assert.Equal(t, "", coerceID(nil))
}
