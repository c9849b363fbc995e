// Package reconcile maps external catalog references onto local catalog
// rows, creating missing entities exactly once.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/waxlog/waxlog/internal/catalog"
	"github.com/waxlog/waxlog/internal/imaging"
	"github.com/waxlog/waxlog/internal/provider"
)

// MetadataSource looks up full entity records in the external catalog.
type MetadataSource interface {
	SearchArtist(ctx context.Context, name, externalID string) (*provider.EntityInfo, error)
	SearchLabel(ctx context.Context, name, externalID string) (*provider.EntityInfo, error)
}

// ImageResolver fetches and stores an image for a catalog entity.
type ImageResolver interface {
	Resolve(ctx context.Context, kind provider.Kind, id int64, externalID, name, artistName string) (string, error)
}

// Reconciler resolves artist and label references to local entity IDs.
type Reconciler struct {
	catalog *catalog.Service
	source  MetadataSource
	images  ImageResolver
	logger  *slog.Logger
}

// New creates a reconciler. images may be nil to skip image resolution.
func New(cat *catalog.Service, source MetadataSource, images ImageResolver, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		catalog: cat,
		source:  source,
		images:  images,
		logger:  logger.With(slog.String("component", "reconcile")),
	}
}

// CreateIfNotExists returns the local ID for the entity with the given
// external ID, creating it from catalog metadata when absent. Repeated
// calls with the same external ID return the same row; a concurrent
// insert losing the uniqueness race falls back to the winning row.
// An empty external ID resolves to the reserved entity.
func (r *Reconciler) CreateIfNotExists(ctx context.Context, kind provider.Kind, externalID, name string) (int64, error) {
	if externalID == "" {
		return catalog.SentinelID, nil
	}

	existing, err := r.catalog.GetByExternalID(ctx, kind, externalID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	info, err := r.lookup(ctx, kind, name, externalID)
	if err != nil {
		return 0, err
	}
	if info == nil {
		// The catalog knows nothing about this ID; store what the caller
		// gave us so the reference survives.
		info = &provider.EntityInfo{Name: name, ExternalID: externalID}
	}

	entity := catalog.FromEntityInfo(kind, info)
	if entity.Name == "" {
		entity.Name = name
	}
	if err := r.catalog.Create(ctx, entity); err != nil {
		if isUniqueViolation(err) {
			winner, lookupErr := r.catalog.GetByExternalID(ctx, kind, externalID)
			if lookupErr == nil && winner != nil {
				return winner.ID, nil
			}
		}
		return 0, err
	}

	r.logger.Info("created catalog entity",
		slog.String("kind", string(kind)),
		slog.Int64("id", entity.ID),
		slog.String("name", entity.Name))

	r.attachImage(ctx, kind, entity)
	return entity.ID, nil
}

// FindOrCreateByName resolves an entity that has no external ID, matching
// by name first. An empty name resolves to the reserved entity.
func (r *Reconciler) FindOrCreateByName(ctx context.Context, kind provider.Kind, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return catalog.SentinelID, nil
	}

	existing, err := r.catalog.FindByName(ctx, kind, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	entity := &catalog.Entity{Kind: kind, Name: name}
	if err := r.catalog.Create(ctx, entity); err != nil {
		return 0, err
	}

	r.logger.Info("created catalog entity",
		slog.String("kind", string(kind)),
		slog.Int64("id", entity.ID),
		slog.String("name", entity.Name))

	r.attachImage(ctx, kind, entity)
	return entity.ID, nil
}

// lookup queries the metadata source for the entity kind. Absence is a
// soft failure: nil record, nil error.
func (r *Reconciler) lookup(ctx context.Context, kind provider.Kind, name, externalID string) (*provider.EntityInfo, error) {
	switch kind {
	case provider.KindArtist:
		return r.source.SearchArtist(ctx, name, externalID)
	case provider.KindLabel:
		return r.source.SearchLabel(ctx, name, externalID)
	default:
		return nil, &provider.ErrInvalidArgument{Reason: "unsupported entity kind " + string(kind)}
	}
}

// attachImage resolves and records an image for a newly created entity.
// Failures are logged and swallowed; the entity row is already durable.
func (r *Reconciler) attachImage(ctx context.Context, kind provider.Kind, entity *catalog.Entity) {
	if r.images == nil {
		return
	}
	path, err := r.images.Resolve(ctx, kind, entity.ID, entity.ExternalID, entity.Name, "")
	if err != nil {
		if !errors.Is(err, imaging.ErrNoImage) {
			r.logger.Warn("image resolution failed",
				slog.String("kind", string(kind)),
				slog.Int64("id", entity.ID),
				slog.String("error", err.Error()))
		}
		return
	}
	if err := r.catalog.SetImagePath(ctx, entity.ID, path); err != nil {
		r.logger.Warn("recording image path failed",
			slog.Int64("id", entity.ID),
			slog.String("error", err.Error()))
	}
}

// isUniqueViolation reports whether the error is a SQLite uniqueness
// constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
