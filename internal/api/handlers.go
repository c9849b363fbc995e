package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/waxlog/waxlog/internal/goal"
	"github.com/waxlog/waxlog/internal/provider"
	"github.com/waxlog/waxlog/internal/release"
	"github.com/waxlog/waxlog/internal/submission"
	"github.com/waxlog/waxlog/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleSearchReleases(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	results, err := r.search.SearchReleases(req.Context(), q.Get("release"), q.Get("artist"), q.Get("label"))
	if err != nil {
		var invalid *provider.ErrInvalidArgument
		if errors.As(err, &invalid) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": invalid.Reason})
			return
		}
		r.logger.Error("release search failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "catalog search failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (r *Router) handleSubmitRelease(w http.ResponseWriter, req *http.Request) {
	var sub submission.Submission
	if err := json.NewDecoder(req.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := r.orchestrator.Handle(req.Context(), sub)
	if err != nil {
		var invalid *provider.ErrInvalidArgument
		if errors.As(err, &invalid) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": invalid.Reason})
			return
		}
		r.logger.Error("submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (r *Router) handleListReleases(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	params := release.ListParams{
		Search:   q.Get("search"),
		Genre:    q.Get("genre"),
		Country:  q.Get("country"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
		Page:     intParam(q.Get("page")),
		PageSize: intParam(q.Get("page_size")),
	}

	releases, total, err := r.releaseService.List(req.Context(), params)
	if err != nil {
		r.logger.Error("listing releases failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"releases":  releases,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
	})
}

func (r *Router) handleGetRelease(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	rel, err := r.releaseService.GetByID(req.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "release not found"})
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (r *Router) handleUpdateRelease(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	existing, err := r.releaseService.GetByID(req.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "release not found"})
		return
	}

	var body release.Release
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	body.ID = existing.ID
	if body.Rating < 0 || body.Rating > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rating must be between 0 and 100"})
		return
	}

	if err := r.releaseService.Update(req.Context(), &body); err != nil {
		r.logger.Error("updating release failed", "error", err, "id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, &body)
}

func (r *Router) handleDeleteRelease(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	if err := r.releaseService.Delete(req.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "release not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleAddReview(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || strings.TrimSpace(body.Body) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "review body is required"})
		return
	}

	review, err := r.releaseService.AddReview(req.Context(), id, body.Body)
	if err != nil {
		r.logger.Error("adding review failed", "error", err, "release", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (r *Router) handleListReviews(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	reviews, err := r.releaseService.ListReviews(req.Context(), id)
	if err != nil {
		r.logger.Error("listing reviews failed", "error", err, "release", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (r *Router) handleDistinctValues(w http.ResponseWriter, req *http.Request) {
	values, err := r.releaseService.DistinctValues(req.Context(), req.PathValue("column"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": values})
}

// entityList returns a list handler bound to one entity kind.
func (r *Router) entityList(kind provider.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		entities, err := r.catalogService.List(req.Context(), kind)
		if err != nil {
			r.logger.Error("listing entities failed", "error", err, "kind", string(kind))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
	}
}

func (r *Router) handleGetEntity(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	entity, err := r.catalogService.GetByID(req.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (r *Router) handleTopRated(w http.ResponseWriter, req *http.Request) {
	kind, ok := pathKind(w, req)
	if !ok {
		return
	}
	order := req.URL.Query().Get("order")
	rankings, err := r.statsEngine.TopRated(req.Context(), kind, intParam(req.URL.Query().Get("limit")), order)
	if err != nil {
		r.logger.Error("top rated query failed", "error", err, "kind", string(kind))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rankings": rankings})
}

func (r *Router) handleTopFrequent(w http.ResponseWriter, req *http.Request) {
	kind, ok := pathKind(w, req)
	if !ok {
		return
	}
	rankings, err := r.statsEngine.TopFrequent(req.Context(), kind, intParam(req.URL.Query().Get("limit")))
	if err != nil {
		r.logger.Error("top frequent query failed", "error", err, "kind", string(kind))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rankings": rankings})
}

func (r *Router) handleCreateGoal(w http.ResponseWriter, req *http.Request) {
	var g goal.Goal
	if err := json.NewDecoder(req.Body).Decode(&g); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := r.goalService.Create(req.Context(), &g); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, &g)
}

func (r *Router) handleListGoals(w http.ResponseWriter, req *http.Request) {
	goals, err := r.goalService.List(req.Context())
	if err != nil {
		r.logger.Error("listing goals failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (r *Router) handleGetGoal(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	g, err := r.goalService.Get(req.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "goal not found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (r *Router) handleDeleteGoal(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req)
	if !ok {
		return
	}
	if err := r.goalService.Delete(req.Context(), id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "goal not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} path segment, writing a 400 response on failure.
func pathID(w http.ResponseWriter, req *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
	if err != nil || id < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// pathKind maps the {kind} path segment to an entity kind, writing a 404
// response for anything but artists or labels.
func pathKind(w http.ResponseWriter, req *http.Request) (provider.Kind, bool) {
	switch req.PathValue("kind") {
	case "artists":
		return provider.KindArtist, true
	case "labels":
		return provider.KindLabel, true
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown entity kind"})
		return "", false
	}
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
