// Package stats ranks artists and labels over the stored collection.
//
// Rated rankings use Bayesian shrinkage: each entity's average rating is
// pulled toward the mean of all entity averages, weighted by how many
// releases back it up. This keeps a single 100-rated one-off from topping
// the chart.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/waxlog/waxlog/internal/catalog"
	"github.com/waxlog/waxlog/internal/provider"
)

// variousArtists is excluded from artist rankings; its releases belong to
// many artists and its average says nothing about any of them.
const variousArtists = "Various Artists"

// minReleases is the exclusive lower bound on release count for rated
// rankings. A single-release average is not statistically meaningful.
const minReleases = 1

// Ranking is one entity's position in a rated or frequency chart.
type Ranking struct {
	EntityID  int64   `json:"entity_id"`
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	Average   float64 `json:"average"`
	Score     float64 `json:"score"`
	ImagePath string  `json:"image_path,omitempty"`
}

// Engine computes rankings from the release collection.
type Engine struct {
	db *sql.DB
}

// NewEngine creates a ranking engine.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// BayesianAverage blends an item's own average with the population mean:
// weight*itemAvg + (1-weight)*meanAvg. weight must be in [0, 1].
func BayesianAverage(weight, itemAvg, meanAvg float64) (float64, error) {
	if weight < 0 || weight > 1 {
		return 0, &provider.ErrInvalidArgument{Reason: fmt.Sprintf("weight %v outside [0, 1]", weight)}
	}
	return weight*itemAvg + (1-weight)*meanAvg, nil
}

// TopRated returns up to limit entities of the kind ranked by Bayesian-
// adjusted average rating. order is "desc" (default) or "asc". Entities
// with fewer than two releases are excluded, as are the reserved entity
// and, for artists, the Various Artists placeholder.
func (e *Engine) TopRated(ctx context.Context, kind provider.Kind, limit int, order string) ([]Ranking, error) {
	rankings, err := e.entityAggregates(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(rankings) == 0 {
		return nil, nil
	}

	// The shrinkage target is the mean of the entity averages, not the
	// mean across individual releases; a prolific entity should not drag
	// the baseline toward its own taste.
	var sumAvg, sumCount float64
	for _, r := range rankings {
		sumAvg += r.Average
		sumCount += float64(r.Count)
	}
	meanAvg := sumAvg / float64(len(rankings))
	meanCount := sumCount / float64(len(rankings))

	for i := range rankings {
		count := float64(rankings[i].Count)
		weight := count / (count + meanCount)
		score, err := BayesianAverage(weight, rankings[i].Average, meanAvg)
		if err != nil {
			return nil, err
		}
		rankings[i].Score = score
	}

	ascending := order == "asc"
	sort.SliceStable(rankings, func(i, j int) bool {
		if ascending {
			return rankings[i].Score < rankings[j].Score
		}
		return rankings[i].Score > rankings[j].Score
	})

	return truncate(rankings, limit), nil
}

// TopFrequent returns up to limit entities of the kind ordered by raw
// release count, most first. No Bayesian adjustment and no minimum count;
// single-release entities appear here even though TopRated excludes them.
func (e *Engine) TopFrequent(ctx context.Context, kind provider.Kind, limit int) ([]Ranking, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := e.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.image_path, COUNT(r.id) AS release_count
		FROM entities e
		JOIN releases r ON `+joinColumn(kind)+` = e.id
		WHERE e.kind = ? AND e.id != ? AND e.name != ?
		GROUP BY e.id
		ORDER BY release_count DESC, e.name
		LIMIT ?
	`, string(kind), catalog.SentinelID, excludedName(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s frequency: %w", kind, err)
	}
	defer rows.Close() //nolint:errcheck

	var rankings []Ranking
	for rows.Next() {
		var r Ranking
		if err := rows.Scan(&r.EntityID, &r.Name, &r.ImagePath, &r.Count); err != nil {
			return nil, fmt.Errorf("scanning frequency row: %w", err)
		}
		rankings = append(rankings, r)
	}
	return rankings, rows.Err()
}

// entityAggregates returns per-entity release counts and average ratings
// for entities eligible for rated ranking.
func (e *Engine) entityAggregates(ctx context.Context, kind provider.Kind) ([]Ranking, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT e.id, e.name, e.image_path, COUNT(r.id), AVG(r.rating)
		FROM entities e
		JOIN releases r ON `+joinColumn(kind)+` = e.id
		WHERE e.kind = ? AND e.id != ? AND e.name != ?
		GROUP BY e.id
		HAVING COUNT(r.id) > ?
	`, string(kind), catalog.SentinelID, excludedName(kind), minReleases)
	if err != nil {
		return nil, fmt.Errorf("querying %s aggregates: %w", kind, err)
	}
	defer rows.Close() //nolint:errcheck

	var rankings []Ranking
	for rows.Next() {
		var r Ranking
		if err := rows.Scan(&r.EntityID, &r.Name, &r.ImagePath, &r.Count, &r.Average); err != nil {
			return nil, fmt.Errorf("scanning aggregate row: %w", err)
		}
		rankings = append(rankings, r)
	}
	return rankings, rows.Err()
}

// joinColumn picks the release FK column for the entity kind. Labels join
// on label_id, everything else on artist_id.
func joinColumn(kind provider.Kind) string {
	if kind == provider.KindLabel {
		return "r.label_id"
	}
	return "r.artist_id"
}

// excludedName is the placeholder name filtered from rankings for the
// kind. Only artists have one.
func excludedName(kind provider.Kind) string {
	if kind == provider.KindArtist {
		return variousArtists
	}
	return ""
}

func truncate(rankings []Ranking, limit int) []Ranking {
	if limit < 1 {
		limit = 10
	}
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings
}
