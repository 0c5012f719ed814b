package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type ItemKind int

const (
	ItemPlain ItemKind = iota
	ItemRich
)

// richTextKeys are the object keys that may carry a rich item's text, in lookup order.
var richTextKeys = []string{"data", "text", "content"}

// ContentItem is one entry of a sequence body.
type ContentItem struct {
	Kind ItemKind
	Text string
	// Fields holds the original object of a rich item, text key included.
	Fields map[string]json.RawMessage
}

func PlainText(s string) ContentItem {
	return ContentItem{Kind: ItemPlain, Text: s}
}

func RichItem(text string, fields map[string]json.RawMessage) ContentItem {
	return ContentItem{Kind: ItemRich, Text: text, Fields: fields}
}

// Content is an article body: either a single string or an ordered
// sequence of plain and rich items. The zero value is an empty body.
type Content struct {
	text  string
	items []ContentItem
	list  bool
}

func PlainContent(s string) Content {
	return Content{text: s}
}

func ListContent(items ...ContentItem) Content {
	return Content{items: items, list: true}
}

func (c Content) IsList() bool { return c.list }

func (c Content) IsZero() bool {
	return !c.list && c.text == ""
}

// Normalize returns the body as an item sequence regardless of shape.
func (c Content) Normalize() []ContentItem {
	if c.list {
		out := make([]ContentItem, len(c.items))
		copy(out, c.items)
		return out
	}
	if c.text == "" {
		return nil
	}
	return []ContentItem{PlainText(c.text)}
}

// Paragraphs returns the non-blank trimmed texts of the body.
func (c Content) Paragraphs() []string {
	var out []string
	for _, item := range c.Normalize() {
		if t := strings.TrimSpace(item.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (c Content) MarshalJSON() ([]byte, error) {
	if !c.list {
		if c.text == "" {
			return []byte("null"), nil
		}
		return json.Marshal(c.text)
	}

	raw := make([]json.RawMessage, 0, len(c.items))
	for _, item := range c.items {
		var (
			b   []byte
			err error
		)
		switch {
		case item.Kind == ItemPlain:
			b, err = json.Marshal(item.Text)
		case item.Fields != nil:
			b, err = json.Marshal(item.Fields)
		default:
			b, err = json.Marshal(map[string]string{"text": item.Text})
		}
		if err != nil {
			return nil, fmt.Errorf("marshal content item: %w", err)
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Content{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &c.text)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode content list: %w", err)
		}
		c.list = true
		c.items = make([]ContentItem, 0, len(raw))
		for _, r := range raw {
			c.items = append(c.items, decodeItem(r))
		}
		return nil
	default:
		// Scalars are kept as their literal text.
		c.text = string(data)
		return nil
	}
}

func decodeItem(r json.RawMessage) ContentItem {
	r = bytes.TrimSpace(r)
	if len(r) == 0 {
		return PlainText("")
	}

	switch r[0] {
	case '"':
		var s string
		_ = json.Unmarshal(r, &s)
		return PlainText(s)
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(r, &fields); err != nil {
			return PlainText("")
		}
		return RichItem(richText(fields), fields)
	case 'n':
		return PlainText("")
	default:
		return PlainText(string(r))
	}
}

func richText(fields map[string]json.RawMessage) string {
	for _, key := range richTextKeys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
