package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/vibecircle/feedcore/internal/ranking"
)

// DefaultStoreTimeout bounds each content store query. Ranking is on the
// request path, so a slow store degrades to an empty context instead of
// delaying feed delivery.
const DefaultStoreTimeout = 2 * time.Second

// Loader builds UserContext snapshots from the content store.
// Every query fails soft: an error or timeout yields the empty value for
// that facet and the rest of the snapshot still loads.
type Loader struct {
	store    ContentStore
	trending *TrendingCache
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTimeout sets the per-query store timeout.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the loader's metrics.
func WithMetrics(m *Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a context loader over the store. The trending cache is
// optional; when nil, trending aggregates are queried directly per request.
func NewLoader(store ContentStore, trending *TrendingCache, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:    store,
		trending: trending,
		timeout:  DefaultStoreTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds the user's context snapshot. It never returns an error:
// store failures degrade the affected facet to its empty value.
func (l *Loader) Load(ctx context.Context, userID string) *UserContext {
	connections := l.loadConnections(ctx, userID)
	interests := l.loadInterests(ctx, userID)
	liked, commented := l.loadInteractions(ctx, userID)
	preference := l.loadTypePreference(ctx, userID)
	trendingHashtags, trendingInterests := l.loadTrending(ctx)

	return newContext(userID,
		connections, interests, liked, commented,
		preference, trendingHashtags, trendingInterests)
}

func (l *Loader) loadConnections(ctx context.Context, userID string) map[string]struct{} {
	qctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ids, err := l.store.GetAcceptedConnections(qctx, userID)
	if err != nil {
		l.degrade("connections", userID, err)
		return nil
	}

	connections := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" || id == userID {
			// The store contract excludes self-edges; drop them anyway.
			continue
		}
		connections[id] = struct{}{}
	}
	return connections
}

func (l *Loader) loadInterests(ctx context.Context, userID string) map[string]struct{} {
	qctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := l.store.GetInterests(qctx, userID)
	if err != nil {
		l.degrade("interests", userID, err)
		return nil
	}

	return normalizeTagSet(raw)
}

func (l *Loader) loadInteractions(ctx context.Context, userID string) (liked, commented map[string]struct{}) {
	qctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	history, err := l.store.GetInteractionHistory(qctx, userID)
	if err != nil {
		l.degrade("interactions", userID, err)
		return nil, nil
	}

	liked = make(map[string]struct{}, len(history.Liked))
	for _, id := range history.Liked {
		liked[id] = struct{}{}
	}
	commented = make(map[string]struct{}, len(history.Commented))
	for _, id := range history.Commented {
		commented[id] = struct{}{}
	}
	return liked, commented
}

// loadTypePreference returns the user's normalized engagement histogram, or
// the fixed default distribution for users with no recorded engagements.
func (l *Loader) loadTypePreference(ctx context.Context, userID string) map[string]float64 {
	qctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	histogram, err := l.store.GetContentTypePreference(qctx, userID)
	if err != nil {
		l.degrade("type_preference", userID, err)
		return DefaultTypePreference()
	}

	return normalizePreference(histogram)
}

func (l *Loader) loadTrending(ctx context.Context) (hashtags, interests map[string]struct{}) {
	if l.trending != nil {
		snap := l.trending.Get(ctx)
		return normalizeTagSet(snap.Hashtags), normalizeTagSet(snap.Interests)
	}

	qctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rawHashtags, err := l.store.GetTrendingHashtags(qctx, TrendingHashtagWindowDays, TrendingHashtagMinUsage)
	if err != nil {
		l.degrade("trending_hashtags", "", err)
		rawHashtags = nil
	}
	rawInterests, err := l.store.GetTrendingInterests(qctx, TrendingInterestWindowDays, TrendingInterestMinCount)
	if err != nil {
		l.degrade("trending_interests", "", err)
		rawInterests = nil
	}

	return normalizeTagSet(rawHashtags), normalizeTagSet(rawInterests)
}

// degrade records a fail-soft store error.
func (l *Loader) degrade(query, userID string, err error) {
	l.logger.Warn("context query failed, degrading to empty",
		"query", query,
		"user_id", userID,
		"error", err)
	if l.metrics != nil {
		l.metrics.IncContextFetchError(query)
	}
}

// normalizeTagSet lower-cases and trims tags into a set, dropping empties.
func normalizeTagSet(tags []string) map[string]struct{} {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		normalized := ranking.NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

// normalizePreference scales a histogram to sum to 1. Empty or degenerate
// histograms fall back to the default distribution.
func normalizePreference(histogram map[string]float64) map[string]float64 {
	sum := 0.0
	for _, v := range histogram {
		if v > 0 {
			sum += v
		}
	}
	if sum <= 0 {
		return DefaultTypePreference()
	}

	normalized := make(map[string]float64, len(histogram))
	for contentType, v := range histogram {
		if v > 0 {
			normalized[contentType] = v / sum
		}
	}
	return normalized
}
