// Package profile builds read-only user context snapshots for feed ranking
// from the content store, with fail-soft degradation and a shared trending
// cache.
package profile

import (
	"context"
)

// Trending aggregate window parameters. These match the fixed lookback
// periods the content store computes its aggregates over.
const (
	// TrendingHashtagWindowDays is the hashtag trending lookback window.
	TrendingHashtagWindowDays = 7
	// TrendingHashtagMinUsage is the minimum hashtag usage count to trend.
	TrendingHashtagMinUsage = 5
	// TrendingInterestWindowDays is the interest trending lookback window.
	TrendingInterestWindowDays = 30
	// TrendingInterestMinCount is the minimum profile count for an interest to trend.
	TrendingInterestMinCount = 10
)

// LowActivityThreshold is the combined like+comment count below which a
// user is treated as low-activity by the edge-case handling.
const LowActivityThreshold = 5

// InteractionHistory holds the content ids a user has engaged with.
type InteractionHistory struct {
	Liked     []string
	Commented []string
}

// ContentStore is the read-only query boundary to the social graph and
// content aggregates. Implementations must exclude self-edges and
// non-accepted connections from GetAcceptedConnections.
type ContentStore interface {
	// GetAcceptedConnections returns author ids with an accepted,
	// bidirectional connection to the user.
	GetAcceptedConnections(ctx context.Context, userID string) ([]string, error)

	// GetInterests returns the user's raw profile interest keywords.
	GetInterests(ctx context.Context, userID string) ([]string, error)

	// GetInteractionHistory returns the content ids the user has liked and
	// commented on.
	GetInteractionHistory(ctx context.Context, userID string) (InteractionHistory, error)

	// GetContentTypePreference returns the user's content-type engagement
	// histogram. An empty map means no recorded engagements.
	GetContentTypePreference(ctx context.Context, userID string) (map[string]float64, error)

	// GetTrendingHashtags returns hashtags used more than minUsage times in
	// the last windowDays days.
	GetTrendingHashtags(ctx context.Context, windowDays, minUsage int) ([]string, error)

	// GetTrendingInterests returns interests appearing in more than minCount
	// profiles in the last windowDays days.
	GetTrendingInterests(ctx context.Context, windowDays, minCount int) ([]string, error)
}

// UserContext is an immutable snapshot of everything the scoring engine
// needs to know about the viewer. It is built once per ranking request and
// never mutated afterward; the maps are shared read-only with the engine.
type UserContext struct {
	UserID            string
	Connections       map[string]struct{}
	Interests         map[string]struct{}
	Liked             map[string]struct{}
	Commented         map[string]struct{}
	TypePreference    map[string]float64
	TrendingHashtags  map[string]struct{}
	TrendingInterests map[string]struct{}

	// trending is the precomputed union of TrendingHashtags and
	// TrendingInterests used for scoring lookups.
	trending map[string]struct{}
}

// DefaultTypePreference returns the fixed fallback content-type
// distribution for users with zero recorded engagements.
func DefaultTypePreference() map[string]float64 {
	return map[string]float64{
		"image":   0.4,
		"video":   0.3,
		"text":    0.2,
		"product": 0.1,
	}
}

// EmptyContext returns a fully degraded context for the user: no
// connections, interests, history, or trending data, and the default
// content-type preference.
func EmptyContext(userID string) *UserContext {
	return newContext(userID, nil, nil, nil, nil, DefaultTypePreference(), nil, nil)
}

// newContext assembles a snapshot and precomputes the trending union.
func newContext(
	userID string,
	connections, interests, liked, commented map[string]struct{},
	typePreference map[string]float64,
	trendingHashtags, trendingInterests map[string]struct{},
) *UserContext {
	trending := make(map[string]struct{}, len(trendingHashtags)+len(trendingInterests))
	for tag := range trendingHashtags {
		trending[tag] = struct{}{}
	}
	for tag := range trendingInterests {
		trending[tag] = struct{}{}
	}

	return &UserContext{
		UserID:            userID,
		Connections:       orEmptySet(connections),
		Interests:         orEmptySet(interests),
		Liked:             orEmptySet(liked),
		Commented:         orEmptySet(commented),
		TypePreference:    typePreference,
		TrendingHashtags:  orEmptySet(trendingHashtags),
		TrendingInterests: orEmptySet(trendingInterests),
		trending:          trending,
	}
}

func orEmptySet(s map[string]struct{}) map[string]struct{} {
	if s == nil {
		return map[string]struct{}{}
	}
	return s
}

// IsConnection reports whether the author is an accepted connection.
func (c *UserContext) IsConnection(authorID string) bool {
	_, ok := c.Connections[authorID]
	return ok
}

// HasLiked reports whether the user previously liked the content item.
func (c *UserContext) HasLiked(contentID string) bool {
	_, ok := c.Liked[contentID]
	return ok
}

// HasCommented reports whether the user previously commented on the item.
func (c *UserContext) HasCommented(contentID string) bool {
	_, ok := c.Commented[contentID]
	return ok
}

// InteractionCount returns the combined like and comment history size.
func (c *UserContext) InteractionCount() int {
	return len(c.Liked) + len(c.Commented)
}

// ColdStart reports whether the user has neither connections nor interests.
func (c *UserContext) ColdStart() bool {
	return len(c.Connections) == 0 && len(c.Interests) == 0
}

// LowActivity reports whether the user's interaction history is below the
// low-activity threshold.
func (c *UserContext) LowActivity() bool {
	return c.InteractionCount() < LowActivityThreshold
}

// TrendingSet returns the union of trending hashtags and interests.
// The returned map is shared and must not be mutated.
func (c *UserContext) TrendingSet() map[string]struct{} {
	return c.trending
}
