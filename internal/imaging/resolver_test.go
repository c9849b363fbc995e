package imaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/waxlog/waxlog/internal/provider"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
)

type fakeCover struct {
	data   []byte
	err    error
	called int
}

func (f *fakeCover) FrontImage(ctx context.Context, releaseGroupID, size string) ([]byte, error) {
	f.called++
	return f.data, f.err
}

type fakeFallback struct {
	url    string
	called int
}

func (f *fakeFallback) ImageURL(ctx context.Context, kind provider.Kind, name, artist string) string {
	f.called++
	return f.url
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolvePrimaryCover(t *testing.T) {
	cover := &fakeCover{data: pngBytes}
	fallback := &fakeFallback{}
	base := t.TempDir()
	r := NewResolver(cover, fallback, base, testLogger())

	path, err := r.Resolve(context.Background(), provider.KindRelease, 7, "rg-mbid", "OK Computer", "Radiohead")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := filepath.Join(base, "release", "7.png")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if fallback.called != 0 {
		t.Errorf("fallback consulted despite primary success")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved image: %v", err)
	}
	if len(data) != len(pngBytes) {
		t.Errorf("saved %d bytes, want %d", len(data), len(pngBytes))
	}
}

func TestResolveFallsBackToSecondary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write(jpegBytes) //nolint:errcheck // test server
	}))
	defer srv.Close()

	cover := &fakeCover{}
	fallback := &fakeFallback{url: srv.URL + "/cover.jpg"}
	base := t.TempDir()
	r := NewResolver(cover, fallback, base, testLogger())

	path, err := r.Resolve(context.Background(), provider.KindArtist, 3, "", "Radiohead", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := filepath.Join(base, "artist", "3.jpg")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if cover.called != 0 {
		t.Errorf("primary cover consulted for non-release item")
	}
	if fallback.called != 1 {
		t.Errorf("fallback called %d times, want 1", fallback.called)
	}
}

func TestResolveNoImageAnywhere(t *testing.T) {
	r := NewResolver(&fakeCover{}, &fakeFallback{}, t.TempDir(), testLogger())

	_, err := r.Resolve(context.Background(), provider.KindLabel, 1, "", "XL Recordings", "")
	if !errors.Is(err, ErrNoImage) {
		t.Errorf("expected ErrNoImage, got %v", err)
	}
}

func TestResolvePathIsDeterministic(t *testing.T) {
	cover := &fakeCover{data: jpegBytes}
	base := t.TempDir()
	r := NewResolver(cover, &fakeFallback{}, base, testLogger())

	first, err := r.Resolve(context.Background(), provider.KindRelease, 42, "rg", "In Rainbows", "")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), provider.KindRelease, 42, "rg", "In Rainbows", "")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first != second {
		t.Errorf("paths differ across runs: %q vs %q", first, second)
	}
}
