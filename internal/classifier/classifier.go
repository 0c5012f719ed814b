// Package classifier assigns a navigation category to an article from its
// English title using an ordered table of keyword rules.
package classifier

import (
	"regexp"
	"strings"

	"news_portal/internal/domain"
)

// Rule matches a lower-cased title against a keyword pattern.
type Rule struct {
	Category domain.Category
	Pattern  *regexp.Regexp
}

// NewRule builds a rule that matches when any keyword occurs anywhere in
// the title. Keywords are plain substrings, not whole words.
func NewRule(category domain.Category, keywords ...string) Rule {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(k))
	}
	return Rule{
		Category: category,
		Pattern:  regexp.MustCompile(strings.Join(quoted, "|")),
	}
}

// DefaultRules is evaluated top to bottom; the first match wins.
var DefaultRules = []Rule{
	NewRule(domain.CategorySports,
		"cricket", "football", "soccer", "rugby", "sport", "match", "team", "tournament",
		"cup", "league", "player", "game", "score", "wicket", "goal", "athlete", "olympic",
		"race", "swim", "tennis", "badminton", "basketball", "netball",
	),
	NewRule(domain.CategoryBusiness,
		"market", "economy", "gdp", "trade", "business", "company", "invest", "stock",
		"finance", "bank", "loan", "revenue", "export", "import", "tax", "budget", "profit",
		"rupee", "usd", "dollar", "economic",
	),
	NewRule(domain.CategoryPolitics,
		"president", "minister", "parliament", "election", "government", "political",
		"party", "vote", "senator", "cabinet", "policy", "law", "court", "judge", "legal",
		"mp", "ruling", "opposition", "candidate",
	),
	NewRule(domain.CategoryOpinion,
		"opinion", "editorial", "column", "view", "analysis", "comment", "perspective",
		"argue", "debate", "essay", "letter",
	),
	NewRule(domain.CategoryEntertainment,
		"film", "movie", "music", "actor", "actress", "singer", "concert", "award",
		"celebrity", "entertain", "drama", "theatre", "show", "tv", "television", "series",
		"song", "album", "fashion", "wedding",
	),
	NewRule(domain.CategoryLife,
		"health", "food", "recipe", "travel", "lifestyle", "education", "family", "child",
		"parent", "home", "garden", "yoga", "wellness", "fitness", "diet", "weight",
		"doctor", "hospital", "medical",
	),
}

type Classifier struct {
	rules    []Rule
	fallback domain.Category
}

// New returns a classifier over rules; unmatched titles get domain.CategoryNews.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules, fallback: domain.CategoryNews}
}

func (c *Classifier) Classify(titleEnglish string) domain.Category {
	if titleEnglish == "" {
		return c.fallback
	}
	t := strings.ToLower(titleEnglish)

	for _, r := range c.rules {
		if r.Pattern.MatchString(t) {
			return r.Category
		}
	}
	return c.fallback
}

var std = New(DefaultRules)

// Classify uses DefaultRules.
func Classify(titleEnglish string) domain.Category {
	return std.Classify(titleEnglish)
}
