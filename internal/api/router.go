// Package api exposes the tracker's JSON HTTP surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/waxlog/waxlog/internal/api/middleware"
	"github.com/waxlog/waxlog/internal/catalog"
	"github.com/waxlog/waxlog/internal/goal"
	"github.com/waxlog/waxlog/internal/provider"
	"github.com/waxlog/waxlog/internal/provider/musicbrainz"
	"github.com/waxlog/waxlog/internal/release"
	"github.com/waxlog/waxlog/internal/stats"
	"github.com/waxlog/waxlog/internal/submission"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	CatalogService *catalog.Service
	ReleaseService *release.Service
	GoalService    *goal.Service
	StatsEngine    *stats.Engine
	Search         *musicbrainz.Adapter
	Orchestrator   *submission.Orchestrator
	Logger         *slog.Logger
	BasePath       string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	catalogService *catalog.Service
	releaseService *release.Service
	goalService    *goal.Service
	statsEngine    *stats.Engine
	search         *musicbrainz.Adapter
	orchestrator   *submission.Orchestrator
	logger         *slog.Logger
	basePath       string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		catalogService: deps.CatalogService,
		releaseService: deps.ReleaseService,
		goalService:    deps.GoalService,
		statsEngine:    deps.StatsEngine,
		search:         deps.Search,
		orchestrator:   deps.Orchestrator,
		logger:         deps.Logger,
		basePath:       deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	mux.HandleFunc("GET "+bp+"/api/v1/search/releases", r.handleSearchReleases)

	mux.HandleFunc("POST "+bp+"/api/v1/releases", r.handleSubmitRelease)
	mux.HandleFunc("GET "+bp+"/api/v1/releases", r.handleListReleases)
	mux.HandleFunc("GET "+bp+"/api/v1/releases/values/{column}", r.handleDistinctValues)
	mux.HandleFunc("GET "+bp+"/api/v1/releases/{id}", r.handleGetRelease)
	mux.HandleFunc("PUT "+bp+"/api/v1/releases/{id}", r.handleUpdateRelease)
	mux.HandleFunc("DELETE "+bp+"/api/v1/releases/{id}", r.handleDeleteRelease)
	mux.HandleFunc("POST "+bp+"/api/v1/releases/{id}/reviews", r.handleAddReview)
	mux.HandleFunc("GET "+bp+"/api/v1/releases/{id}/reviews", r.handleListReviews)

	mux.HandleFunc("GET "+bp+"/api/v1/artists", r.entityList(provider.KindArtist))
	mux.HandleFunc("GET "+bp+"/api/v1/artists/{id}", r.handleGetEntity)
	mux.HandleFunc("GET "+bp+"/api/v1/labels", r.entityList(provider.KindLabel))
	mux.HandleFunc("GET "+bp+"/api/v1/labels/{id}", r.handleGetEntity)
	mux.HandleFunc("GET "+bp+"/api/v1/stats/{kind}/top-rated", r.handleTopRated)
	mux.HandleFunc("GET "+bp+"/api/v1/stats/{kind}/top-frequent", r.handleTopFrequent)

	mux.HandleFunc("POST "+bp+"/api/v1/goals", r.handleCreateGoal)
	mux.HandleFunc("GET "+bp+"/api/v1/goals", r.handleListGoals)
	mux.HandleFunc("GET "+bp+"/api/v1/goals/{id}", r.handleGetGoal)
	mux.HandleFunc("DELETE "+bp+"/api/v1/goals/{id}", r.handleDeleteGoal)

	handler := middleware.Logging(r.logger)(mux)
	handler = middleware.RequestID()(handler)
	return handler
}
