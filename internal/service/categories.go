package service

import (
	"strings"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/gamma"
)

// Category is a curated top-level filter offered to clients. The upstream
// tag catalog has thousands of entries; this list is the subset worth
// surfacing as capture filters.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

var MainCategories = []Category{
	{ID: "politics", Label: "Politics", Slug: "politics"},
	{ID: "sports", Label: "Sports", Slug: "sports"},
	{ID: "crypto", Label: "Crypto", Slug: "crypto"},
	{ID: "business", Label: "Business", Slug: "business"},
	{ID: "science", Label: "Science", Slug: "science"},
	{ID: "pop-culture", Label: "Pop Culture", Slug: "pop-culture"},
	{ID: "world", Label: "World", Slug: "world"},

	{ID: "nba", Label: "NBA", Slug: "nba"},
	{ID: "nfl", Label: "NFL", Slug: "nfl"},
	{ID: "mlb", Label: "MLB", Slug: "mlb"},
	{ID: "nhl", Label: "NHL", Slug: "nhl"},
	{ID: "soccer", Label: "Soccer", Slug: "soccer"},
	{ID: "ufc", Label: "UFC / MMA", Slug: "ufc"},
	{ID: "tennis", Label: "Tennis", Slug: "tennis"},
	{ID: "golf", Label: "Golf", Slug: "golf"},
	{ID: "f1", Label: "Formula 1", Slug: "f1"},
	{ID: "boxing", Label: "Boxing", Slug: "boxing"},

	{ID: "elections", Label: "Elections", Slug: "elections"},
	{ID: "trump", Label: "Trump", Slug: "trump"},
	{ID: "congress", Label: "Congress", Slug: "congress"},
	{ID: "federal-reserve", Label: "Federal Reserve", Slug: "federal-reserve"},

	{ID: "bitcoin", Label: "Bitcoin", Slug: "bitcoin"},
	{ID: "ethereum", Label: "Ethereum", Slug: "ethereum"},
	{ID: "solana", Label: "Solana", Slug: "solana"},
	{ID: "memecoins", Label: "Memecoins", Slug: "memecoins"},

	{ID: "ai", Label: "AI", Slug: "ai"},
	{ID: "tech", Label: "Tech", Slug: "tech"},

	{ID: "china", Label: "China", Slug: "china"},
	{ID: "russia", Label: "Russia", Slug: "russia"},
	{ID: "ukraine", Label: "Ukraine", Slug: "ukraine"},
	{ID: "israel", Label: "Israel", Slug: "israel"},
	{ID: "middle-east", Label: "Middle East", Slug: "middle-east"},
}

// preferredCategoryTags are matched first when inferring a category from an
// event's tags.
var preferredCategoryTags = []string{"politics", "sports", "crypto", "science", "business", "entertainment"}

// inferCategory picks a category for an event without one: a preferred tag
// if present, otherwise the event's first tag.
func inferCategory(ev *gamma.Event) string {
	if ev == nil {
		return ""
	}
	if strings.TrimSpace(ev.Category) != "" {
		return ev.Category
	}
	labels := make([]string, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		label := strings.ToLower(strings.TrimSpace(tag.Label))
		if label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		return ""
	}
	for _, preferred := range preferredCategoryTags {
		for _, label := range labels {
			if label == preferred {
				return preferred
			}
		}
	}
	return labels[0]
}

// categoryTagSlug normalizes a user-facing category into the tag slug used
// for event discovery.
func categoryTagSlug(category string) string {
	slug := strings.ToLower(strings.TrimSpace(category))
	return strings.Join(strings.Fields(slug), "-")
}
