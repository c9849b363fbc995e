package catalog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/waxlog/waxlog/internal/database"
	"github.com/waxlog/waxlog/internal/dates"
	"github.com/waxlog/waxlog/internal/provider"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testArtist(name, externalID string) *Entity {
	return &Entity{
		Kind:       provider.KindArtist,
		ExternalID: externalID,
		Name:       name,
		Country:    "GB",
		Type:       "Group",
		Begin:      time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateAndGetByID(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	e := testArtist("Radiohead", "artist-mbid-1")
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID == 0 {
		t.Fatal("Create left ID at zero")
	}

	got, err := svc.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Radiohead" || got.Kind != provider.KindArtist || got.Country != "GB" {
		t.Errorf("unexpected entity: %+v", got)
	}
	if got.Begin.Year() != 1991 {
		t.Errorf("Begin = %v, want 1991", got.Begin)
	}
	// Unset end dates collapse to the max sentinel.
	if !got.End.Equal(dates.Max) {
		t.Errorf("End = %v, want sentinel max", got.End)
	}
}

func TestGetByExternalIDMissIsSoft(t *testing.T) {
	svc := NewService(setupTestDB(t))

	got, err := svc.GetByExternalID(context.Background(), provider.KindArtist, "no-such-mbid")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestGetByExternalIDEmptyID(t *testing.T) {
	svc := NewService(setupTestDB(t))

	got, err := svc.GetByExternalID(context.Background(), provider.KindLabel, "")
	if err != nil || got != nil {
		t.Errorf("empty external id should be a soft miss, got %+v, %v", got, err)
	}
}

func TestFindByName(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	if err := svc.Create(ctx, testArtist("Radiohead", "")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.FindByName(ctx, provider.KindArtist, "radio")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got == nil || got.Name != "Radiohead" {
		t.Errorf("case-insensitive substring match failed: %+v", got)
	}

	miss, err := svc.FindByName(ctx, provider.KindArtist, "portishead")
	if err != nil || miss != nil {
		t.Errorf("expected soft miss, got %+v, %v", miss, err)
	}

	// Kind is part of the match.
	wrongKind, err := svc.FindByName(ctx, provider.KindLabel, "radio")
	if err != nil || wrongKind != nil {
		t.Errorf("label search matched an artist: %+v, %v", wrongKind, err)
	}
}

func TestFindByNameNeverReturnsReservedRow(t *testing.T) {
	svc := NewService(setupTestDB(t))

	got, err := svc.FindByName(context.Background(), provider.Kind("none"), "NONE")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got != nil {
		t.Errorf("reserved row leaked from FindByName: %+v", got)
	}
}

func TestListExcludesReservedRow(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	if err := svc.Create(ctx, testArtist("Radiohead", "")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Create(ctx, testArtist("Autechre", "")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	artists, err := svc.List(ctx, provider.KindArtist)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("expected 2 artists, got %d", len(artists))
	}
	for _, a := range artists {
		if a.ID == SentinelID {
			t.Errorf("reserved row leaked from List")
		}
	}
}

func TestUpdate(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	e := testArtist("Radiohaed", "artist-mbid-1")
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}

	e.Name = "Radiohead"
	e.Country = "GB"
	if err := svc.Update(ctx, e); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Radiohead" {
		t.Errorf("Name = %q after update", got.Name)
	}
}

func TestSetImagePath(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	e := testArtist("Radiohead", "")
	if err := svc.Create(ctx, e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.SetImagePath(ctx, e.ID, "/data/images/artist/1.jpg"); err != nil {
		t.Fatalf("SetImagePath: %v", err)
	}

	got, err := svc.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ImagePath != "/data/images/artist/1.jpg" {
		t.Errorf("ImagePath = %q", got.ImagePath)
	}
}

func TestDeleteRefusesReservedRow(t *testing.T) {
	svc := NewService(setupTestDB(t))

	if err := svc.Delete(context.Background(), SentinelID); err == nil {
		t.Error("deleting the reserved row should fail")
	}
}

func TestDuplicateExternalIDRejected(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	if err := svc.Create(ctx, testArtist("Radiohead", "artist-mbid-1")); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := svc.Create(ctx, testArtist("Radiohead Again", "artist-mbid-1")); err == nil {
		t.Error("duplicate external id accepted")
	}

	// Entities without an external id are exempt from the constraint.
	if err := svc.Create(ctx, testArtist("Unmatched One", "")); err != nil {
		t.Fatalf("Create without external id: %v", err)
	}
	if err := svc.Create(ctx, testArtist("Unmatched Two", "")); err != nil {
		t.Fatalf("second Create without external id: %v", err)
	}
}
