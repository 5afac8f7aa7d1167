package feed

import (
	"time"

	"github.com/vibecircle/feedcore/internal/profile"
	"github.com/vibecircle/feedcore/internal/ranking"
)

// Edge-case partition thresholds.
const (
	// trendingCutoff is the minimum trending score for the cold-start
	// trending bucket and the low-activity boost.
	trendingCutoff = 0.3
	// popularVibesCutoff is the minimum vibe count for the cold-start
	// popular bucket.
	popularVibesCutoff = 10
	// suggestionCutoff is the minimum suggestion score for the
	// low-activity boost.
	suggestionCutoff = 0.2
	// boostedShare is the fraction of feed slots reserved for boosted
	// candidates for low-activity users.
	boostedShare = 0.6
)

// EdgeCaseHandler reshapes the candidate list before scoring for users the
// standard model has too little signal for: cold-start users get a
// trending/popular interleave, low-activity users get discovery-boosted
// slots. Everyone else passes through unchanged.
type EdgeCaseHandler struct {
	engine *ranking.Engine
}

// NewEdgeCaseHandler creates a handler using the engine's component scores
// for partitioning.
func NewEdgeCaseHandler(engine *ranking.Engine) *EdgeCaseHandler {
	return &EdgeCaseHandler{engine: engine}
}

// Apply selects which candidates proceed to scoring. The returned slice
// preserves relative input order within each partition rule.
func (h *EdgeCaseHandler) Apply(userCtx *profile.UserContext, candidates []Candidate, limit int, now time.Time) []Candidate {
	if limit <= 0 {
		limit = DefaultFeedSize
	}

	switch {
	case userCtx.ColdStart():
		return h.coldStart(userCtx, candidates, limit, now)
	case userCtx.LowActivity():
		return h.lowActivity(userCtx, candidates, limit, now)
	default:
		return candidates
	}
}

// coldStart interleaves trending and popular candidates for users with no
// connections and no interests. If one bucket exhausts, the other
// continues filling.
func (h *EdgeCaseHandler) coldStart(userCtx *profile.UserContext, candidates []Candidate, limit int, now time.Time) []Candidate {
	var trending, popular []Candidate
	for _, c := range candidates {
		b := h.engine.Score(RankingInput(userCtx, c), now)
		switch {
		case b.Trending > trendingCutoff:
			trending = append(trending, c)
		case c.Vibes > popularVibesCutoff:
			popular = append(popular, c)
		}
	}

	size := min(limit, len(candidates))
	result := make([]Candidate, 0, size)
	for i, j := 0, 0; len(result) < size && (i < len(trending) || j < len(popular)); {
		if i < len(trending) {
			result = append(result, trending[i])
			i++
		}
		if len(result) >= size {
			break
		}
		if j < len(popular) {
			result = append(result, popular[j])
			j++
		}
	}

	return result
}

// lowActivity reserves most feed slots for discoverable content (strong
// suggestion or trending signal) and fills the rest with regular
// candidates.
func (h *EdgeCaseHandler) lowActivity(userCtx *profile.UserContext, candidates []Candidate, limit int, now time.Time) []Candidate {
	var boosted, regular []Candidate
	for _, c := range candidates {
		b := h.engine.Score(RankingInput(userCtx, c), now)
		if b.Suggestion > suggestionCutoff || b.Trending > trendingCutoff {
			boosted = append(boosted, c)
		} else {
			regular = append(regular, c)
		}
	}

	boostedSlots := int(float64(limit) * boostedShare)
	regularSlots := limit - boostedSlots

	result := make([]Candidate, 0, limit)
	result = append(result, boosted[:min(boostedSlots, len(boosted))]...)
	result = append(result, regular[:min(regularSlots, len(regular))]...)
	if len(result) > limit {
		result = result[:limit]
	}

	return result
}
