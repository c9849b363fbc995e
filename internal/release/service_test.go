package release

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/waxlog/waxlog/internal/catalog"
	"github.com/waxlog/waxlog/internal/database"
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

func testRelease(name string) *Release {
	return &Release{
		Name:        name,
		ArtistID:    catalog.SentinelID,
		LabelID:     catalog.SentinelID,
		ReleaseYear: 1997,
		RuntimeMS:   3196000,
		Rating:      92,
		ListenDate:  time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		TrackCount:  12,
		Country:     "GB",
		Genre:       "Alternative Rock",
	}
}

func TestCreateAndGetByID(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	r := testRelease("OK Computer")
	r.Tags = []string{"britpop", "90s", "britpop", "  ", "electronic"}
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID == 0 {
		t.Fatal("Create left ID at zero")
	}

	got, err := svc.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "OK Computer" || got.Rating != 92 || got.RuntimeMS != 3196000 {
		t.Errorf("unexpected release: %+v", got)
	}
	if got.ListenDate.Format("2006-01-02") != "2026-08-30" {
		t.Errorf("ListenDate = %v", got.ListenDate)
	}
	// Duplicate and blank tags are dropped, order preserved.
	want := []string{"britpop", "90s", "electronic"}
	if !reflect.DeepEqual(got.Tags, want) {
		t.Errorf("Tags = %v, want %v", got.Tags, want)
	}
}

func TestGetByExternalID(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	r := testRelease("OK Computer")
	r.ExternalID = "rel-mbid-1"
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.GetByExternalID(ctx, "rel-mbid-1")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if got == nil || got.ID != r.ID {
		t.Errorf("unexpected result: %+v", got)
	}

	miss, err := svc.GetByExternalID(ctx, "unknown")
	if err != nil || miss != nil {
		t.Errorf("expected soft miss, got %+v, %v", miss, err)
	}
}

func TestListFiltersAndPaging(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	albums := []struct {
		name, genre, country string
		rating               int
	}{
		{"OK Computer", "Alternative Rock", "GB", 92},
		{"Kid A", "Electronic", "GB", 88},
		{"Discovery", "Electronic", "FR", 85},
	}
	for _, a := range albums {
		r := testRelease(a.name)
		r.Genre = a.genre
		r.Country = a.country
		r.Rating = a.rating
		if err := svc.Create(ctx, r); err != nil {
			t.Fatalf("Create %s: %v", a.name, err)
		}
	}

	got, total, err := svc.List(ctx, ListParams{Genre: "Electronic"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("genre filter: total=%d len=%d, want 2/2", total, len(got))
	}

	got, total, err = svc.List(ctx, ListParams{Country: "FR"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || got[0].Name != "Discovery" {
		t.Errorf("country filter: %+v", got)
	}

	got, _, err = svc.List(ctx, ListParams{Sort: "rating", Order: "desc", PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Name != "OK Computer" {
		t.Errorf("sort by rating desc: %+v", got)
	}

	got, total, err = svc.List(ctx, ListParams{Search: "kid"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || got[0].Name != "Kid A" {
		t.Errorf("name search: %+v", got)
	}
}

func TestUpdateReplacesTags(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	r := testRelease("OK Computer")
	r.Tags = []string{"britpop", "90s"}
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	r.Rating = 95
	r.Tags = []string{"art rock"}
	if err := svc.Update(ctx, r); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Rating != 95 {
		t.Errorf("Rating = %d after update", got.Rating)
	}
	if !reflect.DeepEqual(got.Tags, []string{"art rock"}) {
		t.Errorf("Tags = %v, want full replacement", got.Tags)
	}
}

func TestDeleteCascadesTagsAndReviews(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	r := testRelease("OK Computer")
	r.Tags = []string{"britpop"}
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.AddReview(ctx, r.ID, "still holds up"); err != nil {
		t.Fatalf("AddReview: %v", err)
	}

	if err := svc.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var tags, reviews int
	if err := db.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&tags); err != nil {
		t.Fatalf("counting tags: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM reviews`).Scan(&reviews); err != nil {
		t.Fatalf("counting reviews: %v", err)
	}
	if tags != 0 || reviews != 0 {
		t.Errorf("cascade left %d tags, %d reviews", tags, reviews)
	}
}

func TestCountSince(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	dates := []string{"2026-01-15", "2026-06-01", "2026-08-30"}
	for i, d := range dates {
		r := testRelease("Album " + string(rune('A'+i)))
		r.ListenDate, _ = time.Parse("2006-01-02", d)
		if err := svc.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	count, err := svc.CountSince(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if count != 2 {
		t.Errorf("CountSince = %d, want 2", count)
	}
}

func TestReviews(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	r := testRelease("OK Computer")
	if err := svc.Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.AddReview(ctx, r.ID, "   "); err == nil {
		t.Error("blank review accepted")
	}

	rv, err := svc.AddReview(ctx, r.ID, "a classic")
	if err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	if rv.ID == 0 || rv.ReleaseID != r.ID {
		t.Errorf("unexpected review: %+v", rv)
	}

	reviews, err := svc.ListReviews(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(reviews) != 1 || reviews[0].Body != "a classic" {
		t.Errorf("unexpected reviews: %+v", reviews)
	}
}

func TestDistinctValues(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	for _, genre := range []string{"Electronic", "Jazz", "Electronic", ""} {
		r := testRelease("Album " + genre)
		r.Genre = genre
		if err := svc.Create(ctx, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	values, err := svc.DistinctValues(ctx, "genre")
	if err != nil {
		t.Fatalf("DistinctValues: %v", err)
	}
	if !reflect.DeepEqual(values, []string{"Electronic", "Jazz"}) {
		t.Errorf("DistinctValues = %v", values)
	}

	if _, err := svc.DistinctValues(ctx, "rating; DROP TABLE releases"); err == nil {
		t.Error("arbitrary column accepted")
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,a", []string{"a", "b"}},
		{" shoegaze , dream pop ,", []string{"shoegaze", "dream pop"}},
		{",,,", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := SplitTags(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitTags(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
