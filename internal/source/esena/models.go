package esena

import (
	"bytes"
	"encoding/json"
	"fmt"

	"news_portal/internal/domain"
)

// APIResponse is the feed envelope. A nil NewsData or Data means the shape
// is not the one we understand. Records stay raw so that one malformed
// record does not fail the whole feed.
type APIResponse struct {
	NewsData *NewsData `json:"news_data"`
}

type NewsData struct {
	Data []json.RawMessage `json:"data"`
}

type Item struct {
	ID        json.RawMessage `json:"id"`
	TitleSi   text            `json:"titleSi"`
	TitleEn   text            `json:"titleEn"`
	Cover     text            `json:"cover"`
	Thumb     text            `json:"thumb"`
	Published json.RawMessage `json:"published"`
	ContentSi domain.Content  `json:"contentSi"`
	ShareURL  text            `json:"share_url"`
	Category  json.RawMessage `json:"category"`
}

// text accepts a JSON string or scalar and keeps its string form.
// Objects and arrays are rejected.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("expected string, got %s", data[:1])
	default:
		*t = text(data)
	}
	return nil
}
