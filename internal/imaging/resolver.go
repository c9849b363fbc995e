package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/waxlog/waxlog/internal/filesystem"
	"github.com/waxlog/waxlog/internal/provider"
)

// ErrNoImage is returned when neither catalog could supply an image.
// Callers treat it as non-fatal to the enclosing operation but must log it
// distinctly from a successful save.
var ErrNoImage = errors.New("imaging: no image available from any source")

// coverSize is the pixel size requested from the Cover Art Archive.
const coverSize = "500"

// maxStoredDim caps the dimensions of locally stored images.
const maxStoredDim = 1200

// CoverSource fetches primary-catalog cover art for a release group.
type CoverSource interface {
	FrontImage(ctx context.Context, releaseGroupID, size string) ([]byte, error)
}

// FallbackSource finds an image URL by name in the secondary catalog.
type FallbackSource interface {
	ImageURL(ctx context.Context, kind provider.Kind, name, artist string) string
}

// Resolver obtains an image for a tracked item and persists it under a
// deterministic path: {base}/{kind}/{id}{ext}.
type Resolver struct {
	cover    CoverSource
	fallback FallbackSource
	client   *http.Client
	baseDir  string
	logger   *slog.Logger
}

// NewResolver creates an image resolver writing under baseDir.
func NewResolver(cover CoverSource, fallback FallbackSource, baseDir string, logger *slog.Logger) *Resolver {
	return &Resolver{
		cover:    cover,
		fallback: fallback,
		client:   &http.Client{Timeout: 10 * time.Second},
		baseDir:  baseDir,
		logger:   logger.With(slog.String("component", "imaging")),
	}
}

// Resolve finds and stores an image for the item, returning the stored
// path. For releases with a known release-group ID the primary catalog's
// cover endpoint is tried first; everything else falls back to the
// secondary catalog's name search. Returns ErrNoImage when both sources
// come up empty.
func (r *Resolver) Resolve(ctx context.Context, kind provider.Kind, id int64, externalID, name, artistName string) (string, error) {
	var data []byte

	if kind == provider.KindRelease && externalID != "" {
		got, err := r.cover.FrontImage(ctx, externalID, coverSize)
		if err != nil {
			r.logger.Debug("primary cover lookup failed",
				slog.String("release_group", externalID),
				slog.String("error", err.Error()))
		}
		data = got
	}

	if len(data) == 0 {
		imgURL := r.fallback.ImageURL(ctx, kind, name, artistName)
		if imgURL != "" {
			got, err := r.download(ctx, imgURL)
			if err != nil {
				r.logger.Debug("fallback image download failed",
					slog.String("url", imgURL),
					slog.String("error", err.Error()))
			}
			data = got
		}
	}

	if len(data) == 0 {
		return "", ErrNoImage
	}

	ext, err := TypeFromBytes(data)
	if err != nil {
		return "", fmt.Errorf("detecting image format: %w", err)
	}

	// Downscale oversized covers; keep the original bytes if the data
	// cannot be decoded (e.g. a format we detect but cannot re-encode).
	if shrunk, shrunkExt, shrinkErr := Shrink(data, maxStoredDim); shrinkErr == nil {
		data, ext = shrunk, shrunkExt
	}

	target := filepath.Join(r.baseDir, string(kind), strconv.FormatInt(id, 10)+ext)
	if err := filesystem.WriteFileAtomic(target, data, 0o644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}

	r.logger.Debug("saved image",
		slog.String("kind", string(kind)),
		slog.Int64("id", id),
		slog.String("path", target))
	return target, nil
}

// download fetches image bytes from a URL.
func (r *Resolver) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}
