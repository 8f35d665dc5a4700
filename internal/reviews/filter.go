package reviews

import (
	"strings"

	"resenas/pkg/models"
)

// Filter narrows a search. Empty fields match everything; set fields are
// ANDed together.
type Filter struct {
	Author    string // substring of any author, case-insensitive
	Title     string
	Series    string
	MinRating *int
}

func (f Filter) Match(r models.Review) bool {
	if f.Author != "" && !anyContains(r.Authors, f.Author) {
		return false
	}
	if f.Title != "" && !containsFold(r.Title, f.Title) {
		return false
	}
	if f.Series != "" && !containsFold(r.Series, f.Series) {
		return false
	}
	if f.MinRating != nil && r.Rating < *f.MinRating {
		return false
	}
	return true
}

func anyContains(values []string, sub string) bool {
	for _, v := range values {
		if containsFold(v, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
