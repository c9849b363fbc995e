// Package discogs implements the secondary catalog adapter, used as a
// best-effort image fallback when the Cover Art Archive has nothing.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/waxlog/waxlog/internal/provider"
	"github.com/waxlog/waxlog/internal/version"
)

const defaultBaseURL = "https://api.discogs.com"

// Quota handling: Discogs reports the remaining request budget on every
// response. Once it drops to the threshold the adapter pauses before the
// next request instead of failing, since this source is best-effort.
const (
	quotaThreshold = 2
	quotaBackoff   = 5 * time.Second
)

// Adapter searches Discogs for release/artist/label images.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	quota   *provider.QuotaTracker
	logger  *slog.Logger
	baseURL string
	token   string
}

// New creates a Discogs adapter with the default base URL. The token may be
// empty; unauthenticated requests get a smaller quota.
func New(limiter *provider.RateLimiterMap, token string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, token, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Discogs adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, token string, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		quota:   provider.NewQuotaTracker(quotaThreshold, quotaBackoff),
		logger:  logger.With(slog.String("provider", "discogs")),
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Throttled reports whether the remaining request quota is exhausted.
func (a *Adapter) Throttled() bool { return a.quota.Throttled() }

// FindItemID searches by name and kind and returns the first usable hit's
// ID. Release candidates whose format mentions Blu-ray are skipped (wrong
// medium). Returns 0 when nothing matches or the request fails; absence of
// an ID is a normal outcome, not an error.
func (a *Adapter) FindItemID(ctx context.Context, name string, kind provider.Kind, artist string) int64 {
	if name == "" {
		return 0
	}

	params := url.Values{
		"q":    {name},
		"type": {string(kind)},
	}
	if kind == provider.KindRelease && artist != "" {
		params.Set("q", artist)
		params.Set("release_title", name)
	}
	reqURL := a.baseURL + "/database/search?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		a.logger.Debug("search failed",
			slog.String("name", name), slog.String("error", err.Error()))
		return 0
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0
	}

	for _, r := range resp.Results {
		if kind == provider.KindRelease && isBluRay(r.Format) {
			continue
		}
		return r.ID
	}
	return 0
}

// isBluRay reports whether any format string mentions Blu-ray.
func isBluRay(formats []string) bool {
	for _, f := range formats {
		if strings.Contains(strings.ToLower(f), "blu-ray") {
			return true
		}
	}
	return false
}

// FindSquareImage scans image candidates for one with equal height and
// width. If none is square the first candidate is a best-effort fallback.
// Returns an empty string for an absent or empty candidate list.
func FindSquareImage(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	for _, img := range images {
		if img.URI != "" && img.Width > 0 && img.Width == img.Height {
			return img.URI
		}
	}
	return images[0].URI
}

// ImageURL finds an image URL for the named item: search for its ID, fetch
// the detail record, prefer a square image. Returns an empty string on any
// missing input or failure.
func (a *Adapter) ImageURL(ctx context.Context, kind provider.Kind, name, artist string) string {
	id := a.FindItemID(ctx, name, kind, artist)
	if id == 0 {
		return ""
	}

	var path string
	switch kind {
	case provider.KindRelease:
		path = "/releases/"
	case provider.KindArtist:
		path = "/artists/"
	case provider.KindLabel:
		path = "/labels/"
	default:
		return ""
	}

	reqURL := a.baseURL + path + strconv.FormatInt(id, 10)
	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		a.logger.Debug("detail fetch failed",
			slog.Int64("id", id), slog.String("error", err.Error()))
		return ""
	}

	var detail Detail
	if err := json.Unmarshal(body, &detail); err != nil {
		return ""
	}

	return FindSquareImage(detail.Images)
}

func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	// Courtesy backoff once the reported quota runs low.
	if err := a.quota.Pause(ctx); err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameDiscogs, Cause: err}
	}
	if err := a.limiter.Wait(ctx, provider.NameDiscogs); err != nil {
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameDiscogs,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Discogs token="+a.token)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("Waxlog/%s", version.Version))
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameDiscogs, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if v := resp.Header.Get("X-Discogs-Ratelimit-Remaining"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil {
			a.quota.Record(n)
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{Provider: provider.NameDiscogs, ID: reqURL}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameDiscogs,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}
