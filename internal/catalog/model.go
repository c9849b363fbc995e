// Package catalog stores the artists and labels a release can reference.
//
// Artists and labels share every field and behavior, so they are one Entity
// type discriminated by Kind rather than two parallel types. A reserved row
// with ID 0 and name "[NONE]" stands in when a release has no known artist
// or label; aggregate queries exclude it.
package catalog

import (
	"time"

	"github.com/waxlog/waxlog/internal/provider"
)

// SentinelID is the reserved entity row referenced by releases with no
// known artist or label.
const SentinelID int64 = 0

// SentinelName is the display name of the reserved entity row.
const SentinelName = "[NONE]"

// Entity is an artist or label.
type Entity struct {
	ID         int64         `json:"id"`
	Kind       provider.Kind `json:"kind"`
	ExternalID string        `json:"external_id,omitempty"`
	Name       string        `json:"name"`
	Country    string        `json:"country,omitempty"`
	Type       string        `json:"type,omitempty"`
	Begin      time.Time     `json:"begin"`
	End        time.Time     `json:"end"`
	ImagePath  string        `json:"image_path,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// FromEntityInfo builds an Entity from a normalized catalog record.
func FromEntityInfo(kind provider.Kind, info *provider.EntityInfo) *Entity {
	return &Entity{
		Kind:       kind,
		ExternalID: info.ExternalID,
		Name:       info.Name,
		Country:    info.Country,
		Type:       info.Type,
		Begin:      info.Begin,
		End:        info.End,
	}
}
