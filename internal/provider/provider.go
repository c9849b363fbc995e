// Package provider defines the shared types and error taxonomy for the
// external catalog adapters.
package provider

import (
	"fmt"
	"time"
)

// Name uniquely identifies an external catalog.
type Name string

// Known catalog names.
const (
	NameMusicBrainz Name = "musicbrainz"
	NameCoverArt    Name = "coverartarchive"
	NameDiscogs     Name = "discogs"
)

// Kind identifies which catalog entity an operation targets.
type Kind string

// Entity kinds understood by the adapters.
const (
	KindRelease Kind = "release"
	KindArtist  Kind = "artist"
	KindLabel   Kind = "label"
)

// ReleaseSearchResult is one hit from a release search, flattened to the
// fields the tracker stores. Optional fields are empty strings or zero,
// never omitted, so callers can rely on presence.
type ReleaseSearchResult struct {
	Name             string `json:"name"`
	ExternalID       string `json:"external_id"`
	ArtistName       string `json:"artist_name"`
	ArtistExternalID string `json:"artist_external_id"`
	LabelName        string `json:"label_name"`
	LabelExternalID  string `json:"label_external_id"`
	Year             string `json:"year"`
	Format           string `json:"format"`
	TrackCount       int    `json:"track_count"`
	Country          string `json:"country"`
	ReleaseGroupID   string `json:"release_group_id"`
}

// EntityInfo is the normalized full-field record for an artist or label.
// Begin and End are always set, falling back to the sentinel min/max dates
// when the catalog has no life-span data.
type EntityInfo struct {
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id"`
	Begin      time.Time `json:"begin"`
	End        time.Time `json:"end"`
	Country    string    `json:"country"`
	Type       string    `json:"type"`
}

// ErrInvalidArgument indicates the caller supplied structurally wrong input.
type ErrInvalidArgument struct {
	Reason string
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}

// ErrUnavailable indicates a transient catalog failure (network error,
// non-200 response, throttling exhaustion).
type ErrUnavailable struct {
	Provider Name
	Cause    error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the catalog has no data for the requested ID.
// Adapter operations where absence is a normal outcome return nil/zero
// instead; this error only crosses boundaries where the caller asked for
// a specific record by ID.
type ErrNotFound struct {
	Provider Name
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}
