package musicbrainz

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
)

const defaultCoverArtBaseURL = "https://coverartarchive.org"

// maxImageBytes caps cover art downloads.
const maxImageBytes = 10 << 20

// CoverArtClient fetches release-group cover images from the Cover Art
// Archive, MusicBrainz's companion image service.
type CoverArtClient struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// NewCoverArtClient creates a Cover Art Archive client with the default base URL.
func NewCoverArtClient(limiter *provider.RateLimiterMap, logger *slog.Logger) *CoverArtClient {
	return NewCoverArtClientWithBaseURL(limiter, logger, defaultCoverArtBaseURL)
}

// NewCoverArtClientWithBaseURL creates a client with a custom base URL (for testing).
func NewCoverArtClientWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *CoverArtClient {
	return &CoverArtClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "coverartarchive")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FrontImage fetches the front cover for a release group at the given pixel
// size ("250", "500", or "1200"). It tries the direct front-cover endpoint
// first and falls back to listing available images and fetching the first
// by ID. Returns nil with no error when no image exists, the ID is empty,
// or size is not a positive integer string.
func (c *CoverArtClient) FrontImage(ctx context.Context, releaseGroupID, size string) ([]byte, error) {
	if releaseGroupID == "" {
		return nil, nil
	}
	if n, err := strconv.Atoi(size); err != nil || n <= 0 {
		return nil, nil
	}

	front := c.baseURL + "/release-group/" + url.PathEscape(releaseGroupID) + "/front-" + size
	data, err := c.fetch(ctx, front)
	if err == nil {
		return data, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	// No designated front cover; fall back to the first listed image.
	return c.firstListedImage(ctx, releaseGroupID)
}

func (c *CoverArtClient) firstListedImage(ctx context.Context, releaseGroupID string) ([]byte, error) {
	listURL := c.baseURL + "/release-group/" + url.PathEscape(releaseGroupID)
	body, err := c.fetch(ctx, listURL)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var listing CoverArtListResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("parsing cover art listing: %w", err)
	}
	if len(listing.Images) == 0 {
		return nil, nil
	}

	imgURL := c.baseURL + "/release-group/" + url.PathEscape(releaseGroupID) + "/" +
		strconv.FormatInt(listing.Images[0].ID, 10)
	data, err := c.fetch(ctx, imgURL)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *CoverArtClient) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, provider.NameCoverArt); err != nil {
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameCoverArt,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())

	c.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &provider.ErrUnavailable{Provider: provider.NameCoverArt, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{Provider: provider.NameCoverArt, ID: reqURL}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrUnavailable{
			Provider: provider.NameCoverArt,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}
