// Package release stores listened releases along with their tags and reviews.
package release

import (
	"strings"
	"time"
)

// Release is one listened release.
type Release struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"external_id,omitempty"`
	Name        string    `json:"name"`
	ArtistID    int64     `json:"artist_id"`
	LabelID     int64     `json:"label_id"`
	ReleaseYear int       `json:"release_year"`
	RuntimeMS   int64     `json:"runtime_ms"`
	Rating      int       `json:"rating"`
	ListenDate  time.Time `json:"listen_date"`
	TrackCount  int       `json:"track_count"`
	Country     string    `json:"country,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	ImagePath   string    `json:"image_path,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Review is a free-text note attached to a release.
type Review struct {
	ID        int64     `json:"id"`
	ReleaseID int64     `json:"release_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ListParams control release listing.
type ListParams struct {
	Search   string
	Genre    string
	Country  string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

// sortColumns are the release columns List accepts for ordering.
var sortColumns = map[string]bool{
	"name":         true,
	"rating":       true,
	"listen_date":  true,
	"release_year": true,
	"created_at":   true,
}

// Validate clamps paging values and falls back to safe sort defaults.
func (p *ListParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
	if !sortColumns[p.Sort] {
		p.Sort = "listen_date"
	}
	if p.Order != "asc" {
		p.Order = "desc"
	}
}

// SplitTags splits a comma-separated tag string into trimmed, distinct,
// non-empty values, preserving first-seen order.
func SplitTags(s string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
