// Package musicbrainz implements the primary external catalog adapter.
package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/waxlog/waxlog/internal/dates"
	"github.com/waxlog/waxlog/internal/provider"
	"github.com/waxlog/waxlog/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// Adapter resolves names and MBIDs against the MusicBrainz API.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SearchReleases searches for releases matching any combination of release
// title, artist name, and label name. At least one term is required.
func (a *Adapter) SearchReleases(ctx context.Context, release, artist, label string) ([]provider.ReleaseSearchResult, error) {
	var terms []string
	if release != "" {
		terms = append(terms, `release:"`+escapeQuery(release)+`"`)
	}
	if artist != "" {
		terms = append(terms, `artist:"`+escapeQuery(artist)+`"`)
	}
	if label != "" {
		terms = append(terms, `label:"`+escapeQuery(label)+`"`)
	}
	if len(terms) == 0 {
		return nil, &provider.ErrInvalidArgument{Reason: "at least one search term is required"}
	}

	params := url.Values{
		"query": {strings.Join(terms, " AND ")},
		"fmt":   {"json"},
		"limit": {"25"},
	}
	reqURL := a.baseURL + "/release?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp ReleaseSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing release search response: %w", err)
	}

	results := make([]provider.ReleaseSearchResult, 0, len(resp.Releases))
	for i := range resp.Releases {
		results = append(results, flattenRelease(&resp.Releases[i]))
	}
	return results, nil
}

// flattenRelease extracts the fields the tracker stores from a raw search
// hit. Only the first credited artist and first label are kept; absent
// fields become empty strings so downstream code never checks presence.
func flattenRelease(r *MBRelease) provider.ReleaseSearchResult {
	res := provider.ReleaseSearchResult{
		Name:           r.Title,
		ExternalID:     r.ID,
		Year:           dates.Year(r.Date),
		Country:        r.Country,
		ReleaseGroupID: r.ReleaseGroup.ID,
	}

	if len(r.ArtistCredit) > 0 {
		res.ArtistName = r.ArtistCredit[0].Name
		if res.ArtistName == "" {
			res.ArtistName = r.ArtistCredit[0].Artist.Name
		}
		res.ArtistExternalID = r.ArtistCredit[0].Artist.ID
	}

	// Label info is frequently missing upstream; empty strings stand in.
	if len(r.LabelInfo) > 0 {
		res.LabelName = r.LabelInfo[0].Label.Name
		res.LabelExternalID = r.LabelInfo[0].Label.ID
	}

	// Track count sums across all discs, not just the first.
	for _, m := range r.Media {
		res.TrackCount += m.TrackCount
		if res.Format == "" {
			res.Format = m.Format
		}
	}

	return res
}

// SearchArtist resolves an artist by MBID if given, otherwise by name via a
// search for the best-matching ID followed by a full fetch (search rows omit
// life-span data). Returns nil with no error when nothing matches.
func (a *Adapter) SearchArtist(ctx context.Context, name, externalID string) (*provider.EntityInfo, error) {
	return a.searchEntity(ctx, provider.KindArtist, name, externalID)
}

// SearchLabel is the label counterpart of SearchArtist.
func (a *Adapter) SearchLabel(ctx context.Context, name, externalID string) (*provider.EntityInfo, error) {
	return a.searchEntity(ctx, provider.KindLabel, name, externalID)
}

func (a *Adapter) searchEntity(ctx context.Context, kind provider.Kind, name, externalID string) (*provider.EntityInfo, error) {
	if externalID == "" {
		if strings.TrimSpace(name) == "" {
			return nil, nil
		}
		id, err := a.searchID(ctx, kind, name)
		if err != nil || id == "" {
			// Absence of a match is a normal outcome, not an error.
			a.logSoftFailure(kind, name, err)
			return nil, nil
		}
		externalID = id
	}

	info, err := a.GetEntity(ctx, kind, externalID)
	if err != nil {
		a.logSoftFailure(kind, name, err)
		return nil, nil
	}
	return info, nil
}

func (a *Adapter) logSoftFailure(kind provider.Kind, name string, err error) {
	if err == nil {
		return
	}
	a.logger.Debug("entity lookup failed",
		slog.String("kind", string(kind)),
		slog.String("name", name),
		slog.String("error", err.Error()))
}

// searchID finds the MBID of the first search hit for the given name.
// Returns an empty string when the catalog has no match.
func (a *Adapter) searchID(ctx context.Context, kind provider.Kind, name string) (string, error) {
	endpoint, field, err := entityEndpoint(kind)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"query": {field + `:"` + escapeQuery(name) + `"`},
		"fmt":   {"json"},
		"limit": {"1"},
	}
	reqURL := a.baseURL + "/" + endpoint + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return "", err
	}

	var resp EntitySearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing %s search response: %w", endpoint, err)
	}

	hits := resp.Artists
	if kind == provider.KindLabel {
		hits = resp.Labels
	}
	if len(hits) == 0 {
		return "", nil
	}
	return hits[0].ID, nil
}

// GetEntity fetches the full record for an artist or label by MBID and
// normalizes it.
func (a *Adapter) GetEntity(ctx context.Context, kind provider.Kind, mbid string) (*provider.EntityInfo, error) {
	endpoint, _, err := entityEndpoint(kind)
	if err != nil {
		return nil, err
	}

	params := url.Values{"fmt": {"json"}}
	reqURL := a.baseURL + "/" + endpoint + "/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var entity MBEntity
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", endpoint, err)
	}

	return ParseEntity(&entity)
}

// ParseEntity normalizes a raw fetch result into an EntityInfo, applying
// the date sentinels for missing life-span fields.
func ParseEntity(e *MBEntity) (*provider.EntityInfo, error) {
	if e == nil || e.ID == "" {
		return nil, &provider.ErrInvalidArgument{Reason: "empty entity record"}
	}

	begin, err := dates.ToDate(dates.MarkerBegin, e.LifeSpan.Begin)
	if err != nil {
		begin = dates.Min
	}
	end, err := dates.ToDate(dates.MarkerEnd, e.LifeSpan.End)
	if err != nil {
		end = dates.Max
	}

	return &provider.EntityInfo{
		Name:       e.Name,
		ExternalID: e.ID,
		Begin:      begin,
		End:        end,
		Country:    e.Country,
		Type:       e.Type,
	}, nil
}

// ReleaseLength sums track lengths across all discs of a release, in
// milliseconds. Runtime is advisory data: an invalid ID, a failed lookup,
// or any track with a missing length yields 0, never an error.
func (a *Adapter) ReleaseLength(ctx context.Context, mbid string) int64 {
	if mbid == "" {
		return 0
	}

	params := url.Values{
		"inc": {"recordings"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/release/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		a.logger.Debug("release length lookup failed",
			slog.String("mbid", mbid), slog.String("error", err.Error()))
		return 0
	}

	var detail ReleaseDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return 0
	}

	var total int64
	for _, m := range detail.Media {
		for _, t := range m.Tracks {
			if t.Length == nil {
				return 0
			}
			total += *t.Length
		}
	}
	return total
}

// entityEndpoint maps a kind to its API path segment and search field.
func entityEndpoint(kind provider.Kind) (endpoint, field string, err error) {
	switch kind {
	case provider.KindArtist:
		return "artist", "artist", nil
	case provider.KindLabel:
		return "label", "label", nil
	default:
		return "", "", &provider.ErrInvalidArgument{Reason: "unsupported entity kind: " + string(kind)}
	}
}

// escapeQuery escapes Lucene-significant quotes and backslashes in a
// user-supplied search term.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameMusicBrainz); err != nil {
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: reqURL}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// IsNotFound reports whether err is a catalog not-found error.
func IsNotFound(err error) bool {
	var nf *provider.ErrNotFound
	return errors.As(err, &nf)
}

func userAgent() string {
	return fmt.Sprintf("Waxlog/%s (https://github.com/waxlog/waxlog)", version.Version)
}
