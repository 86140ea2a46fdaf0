package service

import (
	"testing"

	"github.com/nissand/polymarket-analytics/internal/client/polymarket/gamma"
)

func TestInferCategory(t *testing.T) {
	cases := []struct {
		name  string
		event *gamma.Event
		want  string
	}{
		{"nil event", nil, ""},
		{"own category wins", &gamma.Event{
			Category: "Geopolitics",
			Tags:     []gamma.Tag{{Label: "Politics"}},
		}, "Geopolitics"},
		{"preferred tag", &gamma.Event{
			Tags: []gamma.Tag{{Label: "NBA Finals"}, {Label: "Sports"}},
		}, "sports"},
		{"first tag fallback", &gamma.Event{
			Tags: []gamma.Tag{{Label: "NBA Finals"}, {Label: "Basketball"}},
		}, "nba finals"},
		{"blank tags ignored", &gamma.Event{
			Tags: []gamma.Tag{{Label: "  "}, {Label: "Crypto"}},
		}, "crypto"},
		{"nothing to infer", &gamma.Event{}, ""},
	}
	for _, tc := range cases {
		if got := inferCategory(tc.event); got != tc.want {
			t.Errorf("%s: inferCategory = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCategoryTagSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Politics", "politics"},
		{"US Politics", "us-politics"},
		{"  Middle  East  ", "middle-east"},
		{"crypto", "crypto"},
	}
	for _, tc := range cases {
		if got := categoryTagSlug(tc.in); got != tc.want {
			t.Errorf("categoryTagSlug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMainCategoriesWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range MainCategories {
		if c.ID == "" || c.Label == "" || c.Slug == "" {
			t.Fatalf("incomplete category %+v", c)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate category id %q", c.ID)
		}
		seen[c.ID] = true
	}
}
