// Package recommend ranks the cached catalog pool against a user's
// inferred genre affinity.
package recommend

import (
	"context"
	"log/slog"
	"sort"

	"aniserve/internal/models"
)

// List weights: history carries the strongest signal, then favorites, then
// pending. Within a list the per-item contribution drops by one for every
// three positions from the front, floored at one.
const (
	historyWeight   = 6
	favoritesWeight = 5
	pendingWeight   = 3
	decayStep       = 3

	genreMultiplier = 12
	airingBonus     = 4

	DefaultLimit = 24
)

// PoolFetcher supplies the deduplicated catalog snapshot. Implemented by
// catalog.Client; tests substitute fakes.
type PoolFetcher interface {
	FetchPool(ctx context.Context) ([]models.CatalogItem, error)
}

type Engine struct {
	pool PoolFetcher
}

func NewEngine(pool PoolFetcher) *Engine {
	return &Engine{pool: pool}
}

// BuildGenreWeights accumulates per-genre affinity from the profile's three
// lists. An empty map means the user has no signal yet.
func BuildGenreWeights(p *models.Profile) map[string]int {
	weights := make(map[string]int)

	for i, e := range p.History {
		addGenres(weights, e.Genres, decayed(historyWeight, i))
	}
	for i, e := range p.Favorites {
		addGenres(weights, e.Genres, decayed(favoritesWeight, i))
	}
	for i, e := range p.Pending {
		addGenres(weights, e.Genres, decayed(pendingWeight, i))
	}

	return weights
}

// Recommend scores the catalog pool against the profile's genre weights and
// returns the top entries, excluding anything already in the user's lists.
// A profile with no signal gets an empty result, never a popularity
// fallback. Upstream failure degrades to an empty result with a warning;
// recommendations are a soft feature.
func (e *Engine) Recommend(ctx context.Context, p *models.Profile, limit int) []models.CatalogItem {
	if limit <= 0 {
		limit = DefaultLimit
	}

	weights := BuildGenreWeights(p)
	if len(weights) == 0 {
		return nil
	}

	pool, err := e.pool.FetchPool(ctx)
	if err != nil {
		slog.Warn("catalog pool unavailable, skipping recommendations", "error", err)
		return nil
	}

	blocked := p.KnownAnimeIDs()

	type scored struct {
		item  models.CatalogItem
		score int
	}
	candidates := make([]scored, 0, len(pool))
	for _, item := range pool {
		if _, ok := blocked[item.ID]; ok {
			continue
		}
		genreSum := 0
		for _, g := range item.Genres {
			genreSum += weights[g]
		}
		score := genreSum*genreMultiplier + item.AverageScore
		if item.Status == models.StatusReleasing {
			score += airingBonus
		}
		candidates = append(candidates, scored{item: item, score: score})
	}

	// Stable sort keeps pool order (trending before popular before top)
	// for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.CatalogItem, len(candidates))
	for i, c := range candidates {
		out[i] = c.item
	}
	return out
}

func decayed(base, position int) int {
	w := base - position/decayStep
	if w < 1 {
		w = 1
	}
	return w
}

func addGenres(weights map[string]int, genres []string, weight int) {
	for _, g := range genres {
		weights[g] += weight
	}
}
