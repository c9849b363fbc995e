// Package submission drives the full pipeline for logging a listened
// release: entity reconciliation, runtime lookup, persistence, image
// resolution, and goal evaluation.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/waxlog/waxlog/internal/catalog"
	"github.com/waxlog/waxlog/internal/goal"
	"github.com/waxlog/waxlog/internal/imaging"
	"github.com/waxlog/waxlog/internal/provider"
	"github.com/waxlog/waxlog/internal/release"
)

// Submission is the complete user input for one listened release.
// External IDs are optional; names alone are enough to log a release.
type Submission struct {
	Name             string `json:"name"`
	ExternalID       string `json:"external_id"`
	ReleaseGroupID   string `json:"release_group_id"`
	ArtistName       string `json:"artist_name"`
	ArtistExternalID string `json:"artist_external_id"`
	LabelName        string `json:"label_name"`
	LabelExternalID  string `json:"label_external_id"`
	Year             int    `json:"year"`
	RuntimeMS        int64  `json:"runtime_ms"`
	Rating           int    `json:"rating"`
	Genre            string `json:"genre"`
	Country          string `json:"country"`
	TrackCount       int    `json:"track_count"`
	Tags             string `json:"tags"`
}

// EntityResolver maps artist/label references to local catalog IDs.
type EntityResolver interface {
	CreateIfNotExists(ctx context.Context, kind provider.Kind, externalID, name string) (int64, error)
	FindOrCreateByName(ctx context.Context, kind provider.Kind, name string) (int64, error)
}

// RuntimeSource fetches an authoritative release runtime in milliseconds.
type RuntimeSource interface {
	ReleaseLength(ctx context.Context, externalID string) int64
}

// ImageResolver fetches and stores an image for a release.
type ImageResolver interface {
	Resolve(ctx context.Context, kind provider.Kind, id int64, externalID, name, artistName string) (string, error)
}

// Orchestrator handles release submissions end to end.
type Orchestrator struct {
	releases *release.Service
	goals    *goal.Service
	entities EntityResolver
	runtime  RuntimeSource
	images   ImageResolver
	location *time.Location
	logger   *slog.Logger
}

// New creates a submission orchestrator. runtime and images may be nil
// to skip the corresponding lookup.
func New(releases *release.Service, goals *goal.Service, entities EntityResolver,
	runtime RuntimeSource, images ImageResolver, location *time.Location, logger *slog.Logger) *Orchestrator {
	if location == nil {
		location = time.UTC
	}
	return &Orchestrator{
		releases: releases,
		goals:    goals,
		entities: entities,
		runtime:  runtime,
		images:   images,
		location: location,
		logger:   logger.With(slog.String("component", "submission")),
	}
}

// Handle logs one listened release and returns its local ID.
//
// Only invalid input or a failure writing the release row itself aborts
// the submission. Reconciliation misses resolve to the reserved entity,
// and image resolution and goal evaluation run after the release is
// already durable.
func (o *Orchestrator) Handle(ctx context.Context, sub Submission) (int64, error) {
	if sub.Name == "" {
		return 0, &provider.ErrInvalidArgument{Reason: "release name is required"}
	}
	if sub.Rating < 0 || sub.Rating > 100 {
		return 0, &provider.ErrInvalidArgument{Reason: "rating must be between 0 and 100"}
	}

	runtimeMS := sub.RuntimeMS
	if sub.ExternalID != "" && o.runtime != nil {
		if got := o.runtime.ReleaseLength(ctx, sub.ExternalID); got > 0 {
			runtimeMS = got
		}
	}

	labelID, err := o.resolveEntity(ctx, provider.KindLabel, sub.LabelExternalID, sub.LabelName)
	if err != nil {
		o.logger.Warn("label reconciliation failed, using reserved entity",
			slog.String("label", sub.LabelName),
			slog.String("error", err.Error()))
		labelID = catalog.SentinelID
	}
	artistID, err := o.resolveEntity(ctx, provider.KindArtist, sub.ArtistExternalID, sub.ArtistName)
	if err != nil {
		o.logger.Warn("artist reconciliation failed, using reserved entity",
			slog.String("artist", sub.ArtistName),
			slog.String("error", err.Error()))
		artistID = catalog.SentinelID
	}

	now := time.Now().In(o.location)
	rel := &release.Release{
		ExternalID:  sub.ExternalID,
		Name:        sub.Name,
		ArtistID:    artistID,
		LabelID:     labelID,
		ReleaseYear: sub.Year,
		RuntimeMS:   runtimeMS,
		Rating:      sub.Rating,
		ListenDate:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, o.location),
		TrackCount:  sub.TrackCount,
		Country:     sub.Country,
		Genre:       sub.Genre,
		Tags:        release.SplitTags(sub.Tags),
	}
	if err := o.releases.Create(ctx, rel); err != nil {
		return 0, fmt.Errorf("persisting release: %w", err)
	}

	o.logger.Info("logged release",
		slog.Int64("id", rel.ID),
		slog.String("name", rel.Name),
		slog.Int("rating", rel.Rating))

	o.attachImage(ctx, rel, sub)
	o.evaluateGoals(ctx, now)
	return rel.ID, nil
}

// resolveEntity picks the reconciliation path for one reference: external
// ID when present, name-only otherwise, reserved entity when both absent.
func (o *Orchestrator) resolveEntity(ctx context.Context, kind provider.Kind, externalID, name string) (int64, error) {
	switch {
	case externalID != "":
		return o.entities.CreateIfNotExists(ctx, kind, externalID, name)
	case name != "":
		return o.entities.FindOrCreateByName(ctx, kind, name)
	default:
		return catalog.SentinelID, nil
	}
}

// attachImage resolves and records cover art for the stored release.
// Failures are logged and swallowed.
func (o *Orchestrator) attachImage(ctx context.Context, rel *release.Release, sub Submission) {
	if o.images == nil {
		return
	}
	path, err := o.images.Resolve(ctx, provider.KindRelease, rel.ID, sub.ReleaseGroupID, rel.Name, sub.ArtistName)
	if err != nil {
		if errors.Is(err, imaging.ErrNoImage) {
			o.logger.Info("no cover art found", slog.Int64("release", rel.ID))
		} else {
			o.logger.Warn("cover art resolution failed",
				slog.Int64("release", rel.ID),
				slog.String("error", err.Error()))
		}
		return
	}
	if err := o.releases.SetImagePath(ctx, rel.ID, path); err != nil {
		o.logger.Warn("recording cover art path failed",
			slog.Int64("release", rel.ID),
			slog.String("error", err.Error()))
	}
}

// evaluateGoals checks every open release goal against the new count and
// marks the ones that are now met. Runs after the release insert so the
// new row is counted.
func (o *Orchestrator) evaluateGoals(ctx context.Context, now time.Time) {
	open, err := o.goals.ListIncomplete(ctx, goal.TypeRelease)
	if err != nil {
		o.logger.Warn("listing open goals failed", slog.String("error", err.Error()))
		return
	}

	for _, g := range open {
		count, err := o.releases.CountSince(ctx, g.StartDate)
		if err != nil {
			o.logger.Warn("counting releases for goal failed",
				slog.Int64("goal", g.ID),
				slog.String("error", err.Error()))
			continue
		}
		if count < g.Amount {
			continue
		}
		if err := o.goals.MarkComplete(ctx, g.ID, now); err != nil {
			o.logger.Warn("marking goal complete failed",
				slog.Int64("goal", g.ID),
				slog.String("error", err.Error()))
			continue
		}
		o.logger.Info("goal completed",
			slog.Int64("goal", g.ID),
			slog.Int("amount", g.Amount),
			slog.Int("count", count))
	}
}
