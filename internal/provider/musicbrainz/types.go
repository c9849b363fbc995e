package musicbrainz

// MusicBrainz API response types. Every field is optional upstream; zero
// values stand in for anything the catalog omits.

// ReleaseSearchResponse is the top-level response from the release search endpoint.
type ReleaseSearchResponse struct {
	Count    int         `json:"count"`
	Offset   int         `json:"offset"`
	Releases []MBRelease `json:"releases"`
}

// MBRelease represents a MusicBrainz release entity as returned by search.
type MBRelease struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Date         string           `json:"date"`
	Country      string           `json:"country"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	LabelInfo    []MBLabelInfo    `json:"label-info"`
	Media        []MBMedium       `json:"media"`
	ReleaseGroup MBReleaseGroup   `json:"release-group"`
}

// MBArtistCredit is one credited artist on a release.
type MBArtistCredit struct {
	Name   string   `json:"name"`
	Artist MBEntity `json:"artist"`
}

// MBLabelInfo is one label attribution on a release.
type MBLabelInfo struct {
	CatalogNumber string   `json:"catalog-number"`
	Label         MBEntity `json:"label"`
}

// MBMedium is one disc of a release.
type MBMedium struct {
	Format     string    `json:"format"`
	TrackCount int       `json:"track-count"`
	Tracks     []MBTrack `json:"tracks"`
}

// MBTrack is one track on a medium. Length is milliseconds and frequently
// missing, which is why it is a pointer.
type MBTrack struct {
	Title  string `json:"title"`
	Length *int64 `json:"length"`
}

// MBReleaseGroup identifies the release group a release belongs to.
type MBReleaseGroup struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MBEntity represents an artist or label record.
type MBEntity struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Country  string     `json:"country"`
	LifeSpan MBLifeSpan `json:"life-span"`
}

// MBLifeSpan represents the begin/end dates of an artist or label.
type MBLifeSpan struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
	Ended bool   `json:"ended"`
}

// EntitySearchResponse covers both the artist and label search endpoints;
// only one of the two slices is populated per call.
type EntitySearchResponse struct {
	Count   int        `json:"count"`
	Artists []MBEntity `json:"artists"`
	Labels  []MBEntity `json:"labels"`
}

// ReleaseDetail is the response from a release lookup with recordings.
type ReleaseDetail struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Media []MBMedium `json:"media"`
}

// CoverArtListResponse is the Cover Art Archive image listing.
type CoverArtListResponse struct {
	Images []CoverArtImage `json:"images"`
}

// CoverArtImage is one entry in a Cover Art Archive listing.
type CoverArtImage struct {
	ID    int64  `json:"id"`
	Front bool   `json:"front"`
	Image string `json:"image"`
}
