package submission

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/waxlog/waxlog/internal/catalog"
	"github.com/waxlog/waxlog/internal/database"
	"github.com/waxlog/waxlog/internal/goal"
	"github.com/waxlog/waxlog/internal/imaging"
	"github.com/waxlog/waxlog/internal/provider"
	"github.com/waxlog/waxlog/internal/release"
)

type fakeResolver struct {
	nextID  int64
	byID    map[string]int64
	byName  map[string]int64
	failFor string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{nextID: 100, byID: map[string]int64{}, byName: map[string]int64{}}
}

func (f *fakeResolver) CreateIfNotExists(ctx context.Context, kind provider.Kind, externalID, name string) (int64, error) {
	if externalID == f.failFor {
		return 0, errors.New("catalog offline")
	}
	if id, ok := f.byID[externalID]; ok {
		return id, nil
	}
	f.nextID++
	f.byID[externalID] = f.nextID
	return f.nextID, nil
}

func (f *fakeResolver) FindOrCreateByName(ctx context.Context, kind provider.Kind, name string) (int64, error) {
	if id, ok := f.byName[name]; ok {
		return id, nil
	}
	f.nextID++
	f.byName[name] = f.nextID
	return f.nextID, nil
}

type fakeRuntime struct {
	length int64
	calls  int
}

func (f *fakeRuntime) ReleaseLength(ctx context.Context, externalID string) int64 {
	f.calls++
	return f.length
}

type fakeImages struct {
	path  string
	err   error
	calls int
}

func (f *fakeImages) Resolve(ctx context.Context, kind provider.Kind, id int64, externalID, name, artistName string) (string, error) {
	f.calls++
	return f.path, f.err
}

func setupTest(t *testing.T) (*sql.DB, *release.Service, *goal.Service) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, release.NewService(db), goal.NewService(db)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSubmission() Submission {
	return Submission{
		Name:             "OK Computer",
		ExternalID:       "rel-mbid-1",
		ReleaseGroupID:   "rg-mbid-1",
		ArtistName:       "Radiohead",
		ArtistExternalID: "artist-mbid-1",
		LabelName:        "Parlophone",
		LabelExternalID:  "label-mbid-1",
		Year:             1997,
		Rating:           92,
		Genre:            "Alternative Rock",
		Country:          "GB",
		TrackCount:       12,
		Tags:             "britpop, 90s, britpop",
	}
}

func TestHandleFullSubmission(t *testing.T) {
	_, releases, goals := setupTest(t)
	resolver := newFakeResolver()
	runtime := &fakeRuntime{length: 3196000}
	images := &fakeImages{path: "/data/images/release/1.jpg"}
	o := New(releases, goals, resolver, runtime, images, time.UTC, testLogger())

	id, err := o.Handle(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	got, err := releases.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "OK Computer" || got.Rating != 92 || got.ReleaseYear != 1997 {
		t.Errorf("unexpected release: %+v", got)
	}
	if got.RuntimeMS != 3196000 {
		t.Errorf("RuntimeMS = %d, want authoritative catalog value", got.RuntimeMS)
	}
	if runtime.calls != 1 {
		t.Errorf("runtime source called %d times, want 1", runtime.calls)
	}
	if got.ArtistID != resolver.byID["artist-mbid-1"] {
		t.Errorf("ArtistID = %d not linked to reconciled artist", got.ArtistID)
	}
	if got.LabelID != resolver.byID["label-mbid-1"] {
		t.Errorf("LabelID = %d not linked to reconciled label", got.LabelID)
	}
	if !reflect.DeepEqual(got.Tags, []string{"britpop", "90s"}) {
		t.Errorf("Tags = %v, want deduplicated pair", got.Tags)
	}
	if got.ImagePath != "/data/images/release/1.jpg" {
		t.Errorf("ImagePath = %q", got.ImagePath)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if got.ListenDate.Format("2006-01-02") != today {
		t.Errorf("ListenDate = %v, want today", got.ListenDate)
	}
}

func TestHandleValidatesInput(t *testing.T) {
	_, releases, goals := setupTest(t)
	o := New(releases, goals, newFakeResolver(), nil, nil, time.UTC, testLogger())
	ctx := context.Background()

	var invalid *provider.ErrInvalidArgument
	if _, err := o.Handle(ctx, Submission{Rating: 50}); !errors.As(err, &invalid) {
		t.Errorf("missing name: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := o.Handle(ctx, Submission{Name: "X", Rating: 101}); !errors.As(err, &invalid) {
		t.Errorf("rating 101: expected ErrInvalidArgument, got %v", err)
	}
}

func TestHandleAbsentEntitiesUseReservedRow(t *testing.T) {
	_, releases, goals := setupTest(t)
	o := New(releases, goals, newFakeResolver(), nil, nil, time.UTC, testLogger())

	sub := Submission{Name: "Unknown Bootleg", Rating: 70, RuntimeMS: 1000}
	id, err := o.Handle(context.Background(), sub)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	got, err := releases.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ArtistID != catalog.SentinelID || got.LabelID != catalog.SentinelID {
		t.Errorf("ArtistID=%d LabelID=%d, want reserved ids", got.ArtistID, got.LabelID)
	}
	if got.RuntimeMS != 1000 {
		t.Errorf("RuntimeMS = %d, want user-supplied 1000", got.RuntimeMS)
	}
}

func TestHandleReconciliationFailureFallsBackToReserved(t *testing.T) {
	_, releases, goals := setupTest(t)
	resolver := newFakeResolver()
	resolver.failFor = "artist-mbid-1"
	o := New(releases, goals, resolver, nil, nil, time.UTC, testLogger())

	id, err := o.Handle(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("reconciliation failure aborted submission: %v", err)
	}
	got, err := releases.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ArtistID != catalog.SentinelID {
		t.Errorf("ArtistID = %d, want reserved fallback", got.ArtistID)
	}
	// The label side still resolved normally.
	if got.LabelID != resolver.byID["label-mbid-1"] {
		t.Errorf("LabelID = %d, want reconciled label", got.LabelID)
	}
}

func TestHandleImageFailureIsTolerated(t *testing.T) {
	_, releases, goals := setupTest(t)
	images := &fakeImages{err: imaging.ErrNoImage}
	o := New(releases, goals, newFakeResolver(), nil, images, time.UTC, testLogger())

	id, err := o.Handle(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("image failure aborted submission: %v", err)
	}
	got, err := releases.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ImagePath != "" {
		t.Errorf("ImagePath = %q, want empty", got.ImagePath)
	}
}

func TestHandleCompletesGoalsOnce(t *testing.T) {
	_, releases, goals := setupTest(t)
	o := New(releases, goals, newFakeResolver(), nil, nil, time.UTC, testLogger())
	ctx := context.Background()

	g := &goal.Goal{
		Type:      goal.TypeRelease,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndGoal:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Amount:    2,
	}
	if err := goals.Create(ctx, g); err != nil {
		t.Fatalf("creating goal: %v", err)
	}

	sub := Submission{Name: "First Album", Rating: 80}
	if _, err := o.Handle(ctx, sub); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	mid, err := goals.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get after first submission: %v", err)
	}
	if mid.Complete() {
		t.Fatal("goal completed after one of two required releases")
	}

	sub.Name = "Second Album"
	if _, err := o.Handle(ctx, sub); err != nil {
		t.Fatalf("second Handle: %v", err)
	}
	done, err := goals.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get after second submission: %v", err)
	}
	if !done.Complete() {
		t.Fatal("goal not completed after reaching its amount")
	}
	completedAt := *done.EndActual

	// A third submission must not move the completion date.
	sub.Name = "Third Album"
	if _, err := o.Handle(ctx, sub); err != nil {
		t.Fatalf("third Handle: %v", err)
	}
	after, err := goals.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get after third submission: %v", err)
	}
	if !after.EndActual.Equal(completedAt) {
		t.Errorf("EndActual moved from %v to %v", completedAt, after.EndActual)
	}
}
