package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vibecircle/feedcore/internal/profile"
	"github.com/vibecircle/feedcore/internal/ranking"
	"github.com/vibecircle/feedcore/internal/tracing"
)

// DefaultMinMatched is the minimum number of input records that must map
// back into the ranked feed before the algorithmic result is trusted.
// Below it, the pipeline falls back to the simple diversity pass.
const DefaultMinMatched = 10

// ContextLoader supplies the viewer's context snapshot. Implementations
// never return an error; a degraded store yields an empty context.
type ContextLoader interface {
	Load(ctx context.Context, userID string) *profile.UserContext
}

// Generator orchestrates the ranking pipeline:
//
//	convert -> edge-case pre-filter -> score -> sort -> diversify -> map back
//
// with two fallbacks: a mapping shortfall degrades to the simple diversity
// pass over the raw input, and any panic anywhere degrades to the raw
// input capped and untouched. GenerateFeed never fails; ranking is
// best-effort and must not block feed delivery.
type Generator struct {
	loader    ContextLoader
	engine    *ranking.Engine
	adapters  Adapters
	edge      *EdgeCaseHandler
	diversity DiversityFilter

	minMatched int
	workers    int
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithAdapters replaces the raw-record adapter registry.
func WithAdapters(adapters Adapters) GeneratorOption {
	return func(g *Generator) {
		if len(adapters) > 0 {
			g.adapters = adapters
		}
	}
}

// WithFeedSize sets the maximum feed length.
func WithFeedSize(limit int) GeneratorOption {
	return func(g *Generator) {
		if limit > 0 {
			g.diversity.Limit = limit
		}
	}
}

// WithAuthorCap sets the per-author diversity cap.
func WithAuthorCap(cap int) GeneratorOption {
	return func(g *Generator) {
		if cap > 0 {
			g.diversity.AuthorCap = cap
		}
	}
}

// WithMinMatched sets the mapping shortfall threshold.
func WithMinMatched(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.minMatched = n
		}
	}
}

// WithScoringWorkers enables parallel scoring across n goroutines.
// Scoring is pure per candidate, so parallelism only changes latency.
// Zero or one keeps scoring sequential.
func WithScoringWorkers(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithGeneratorLogger sets the generator's logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGeneratorMetrics sets the generator's metrics.
func WithGeneratorMetrics(m *Metrics) GeneratorOption {
	return func(g *Generator) {
		g.metrics = m
	}
}

// WithClock injects the reference clock used for time-decay scoring.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a feed generator over the loader and engine.
func NewGenerator(loader ContextLoader, engine *ranking.Engine, opts ...GeneratorOption) *Generator {
	g := &Generator{
		loader:     loader,
		engine:     engine,
		adapters:   DefaultAdapters(),
		diversity:  NewDiversityFilter(DefaultAuthorCap, DefaultFeedSize),
		minMatched: DefaultMinMatched,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.edge = NewEdgeCaseHandler(engine)
	return g
}

// RequestOption annotates a single GenerateFeed call.
type RequestOption func(*requestInfo)

type requestInfo struct {
	circle string
}

// WithCircle records the circle the caller filtered candidates by. Circles
// are applied upstream; the annotation only flows into logs and traces.
func WithCircle(circleID string) RequestOption {
	return func(r *requestInfo) {
		r.circle = circleID
	}
}

// GenerateFeed ranks the raw candidate records for the user and returns
// them reordered, at most the configured feed size. The element type in is
// the element type out. It never returns an error: every failure mode
// degrades to a less personalized but deliverable ordering.
//
// Output is deterministic for identical (userID, raws, context snapshot):
// sorting is stable and ties keep input order.
func (g *Generator) GenerateFeed(ctx context.Context, userID string, raws []any, opts ...RequestOption) []any {
	var info requestInfo
	for _, opt := range opts {
		opt(&info)
	}

	start := time.Now()
	result, outcome := g.generate(ctx, userID, raws, info)

	if g.metrics != nil {
		g.metrics.IncRequests(outcome)
		g.metrics.ObserveDuration(time.Since(start).Seconds())
	}
	return result
}

// generate runs the pipeline. The deferred recover is the absorbing
// fallback state: any panic from any stage returns the original input,
// capped, in unchanged order.
func (g *Generator) generate(ctx context.Context, userID string, raws []any, info requestInfo) (result []any, outcome string) {
	passID := uuid.NewString()
	logger := g.logger.With("pass_id", passID, "user_id", userID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("feed ranking panicked, delivering unranked input",
				"panic", r)
			result = capRaws(raws, g.diversity.Limit)
			outcome = OutcomeUnrankedFallback
		}
	}()

	ctx, endSpan := tracing.StartSpan(ctx, "feed.generate")
	defer endSpan(nil)
	tracing.SetAttributes(ctx,
		attribute.String("feed.user_id", userID),
		attribute.Int("feed.candidates_in", len(raws)),
	)
	if info.circle != "" {
		tracing.SetAttributes(ctx, attribute.String("feed.circle", info.circle))
		logger = logger.With("circle", info.circle)
	}

	if len(raws) == 0 {
		return []any{}, OutcomeRanked
	}

	userCtx := g.loadContext(ctx, userID)
	candidates, byID := g.convert(ctx, raws)
	candidates = g.edgeCase(ctx, userCtx, candidates)
	scored := g.score(ctx, userCtx, candidates)

	// Stable sort keeps input order on ties, which makes ranking
	// deterministic for identical inputs.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	scored = g.diversity.Apply(scored)

	mapped := g.mapBack(scored, byID)
	if len(mapped) < g.minMatched {
		logger.Warn("ranked mapping shortfall, delivering simple diversity feed",
			"matched", len(mapped),
			"min_matched", g.minMatched,
			"candidates_in", len(raws))
		return SimpleDiversity(raws, g.adapters.AuthorOf, g.diversity.AuthorCap, g.diversity.Limit), OutcomeSimpleFallback
	}

	logger.Debug("feed ranked",
		"candidates_in", len(raws),
		"candidates_out", len(mapped))
	return mapped, OutcomeRanked
}

// loadContext fetches the viewer snapshot; a missing loader (not expected
// outside tests) degrades to the empty context.
func (g *Generator) loadContext(ctx context.Context, userID string) *profile.UserContext {
	sctx, endSpan := tracing.StartSpan(ctx, "feed.load_context")
	defer endSpan(nil)

	if g.loader == nil {
		return profile.EmptyContext(userID)
	}
	return g.loader.Load(sctx, userID)
}

// convert adapts each raw record, skipping the unmappable ones, and
// indexes the originals by candidate id for the map-back stage.
func (g *Generator) convert(ctx context.Context, raws []any) ([]Candidate, map[string]any) {
	_, endSpan := tracing.StartSpan(ctx, "feed.convert")
	defer endSpan(nil)

	candidates := make([]Candidate, 0, len(raws))
	byID := make(map[string]any, len(raws))

	for _, raw := range raws {
		c, err := g.adapters.Convert(raw)
		if err != nil {
			if g.metrics != nil {
				g.metrics.IncConversionSkips()
			}
			g.logger.Debug("skipping unconvertible record", "error", err)
			continue
		}
		candidates = append(candidates, c)
		if _, seen := byID[c.ID]; !seen {
			byID[c.ID] = raw
		}
	}

	return candidates, byID
}

func (g *Generator) edgeCase(ctx context.Context, userCtx *profile.UserContext, candidates []Candidate) []Candidate {
	_, endSpan := tracing.StartSpan(ctx, "feed.edge_case")
	defer endSpan(nil)

	return g.edge.Apply(userCtx, candidates, g.diversity.Limit, g.now())
}

// score computes every candidate's composite score, sequentially or across
// the worker pool. Scoring is pure over independent inputs; each worker
// writes only its own index.
func (g *Generator) score(ctx context.Context, userCtx *profile.UserContext, candidates []Candidate) []ScoredCandidate {
	_, endSpan := tracing.StartSpan(ctx, "feed.score")
	defer endSpan(nil)

	if g.metrics != nil {
		g.metrics.ObserveCandidatesRanked(len(candidates))
	}

	now := g.now()
	scored := make([]ScoredCandidate, len(candidates))
	scoreOne := func(i int) {
		// A failed candidate scores 0.0 and stays in the batch; one bad
		// record must not abort ranking.
		defer func() {
			if r := recover(); r != nil {
				scored[i] = ScoredCandidate{Candidate: candidates[i], index: i}
				if g.metrics != nil {
					g.metrics.IncScoringErrors()
				}
				g.logger.Warn("candidate scoring failed",
					"content_id", candidates[i].ID,
					"panic", r)
			}
		}()
		b := g.engine.Score(RankingInput(userCtx, candidates[i]), now)
		scored[i] = ScoredCandidate{
			Candidate: candidates[i],
			Score:     b.Total,
			Breakdown: b,
			index:     i,
		}
	}

	if g.workers <= 1 || len(candidates) < 2 {
		for i := range candidates {
			scoreOne(i)
		}
		return scored
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, g.workers)
	for i := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			scoreOne(i)
		}(i)
	}
	wg.Wait()

	return scored
}

// mapBack resolves scored candidates to their original records, deduped by
// candidate id.
func (g *Generator) mapBack(scored []ScoredCandidate, byID map[string]any) []any {
	result := make([]any, 0, len(scored))
	seen := make(map[string]struct{}, len(scored))

	for _, sc := range scored {
		raw, ok := byID[sc.Candidate.ID]
		if !ok {
			continue
		}
		if _, dup := seen[sc.Candidate.ID]; dup {
			continue
		}
		seen[sc.Candidate.ID] = struct{}{}
		result = append(result, raw)
	}

	return result
}

// capRaws returns the input capped at limit, order unchanged.
func capRaws(raws []any, limit int) []any {
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	if len(raws) <= limit {
		return raws
	}
	return raws[:limit]
}
