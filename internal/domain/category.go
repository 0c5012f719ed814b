package domain

import "strings"

// Category is the navigation label used for filtering.
type Category string

const (
	CategoryNews          Category = "news"
	CategorySports        Category = "sports"
	CategoryBusiness      Category = "business"
	CategoryPolitics      Category = "politics"
	CategoryOpinion       Category = "opinion"
	CategoryEntertainment Category = "entertainment"
	CategoryLife          Category = "life"
)

var categories = []Category{
	CategoryNews,
	CategorySports,
	CategoryBusiness,
	CategoryPolitics,
	CategoryOpinion,
	CategoryEntertainment,
	CategoryLife,
}

// Categories returns the fixed label set in navigation order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory is case-sensitive, like the route parameter it validates.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func categoryList() string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
