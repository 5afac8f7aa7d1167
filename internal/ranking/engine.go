package ranking

import (
	"time"
)

// Known author types for suggestion boosting. Records that omit the author
// type default to AuthorUser upstream, which disables the boost.
const (
	AuthorUser      = "user"
	AuthorCommunity = "community"
	AuthorBrand     = "brand"
)

// ContentProduct is the content type eligible for the product suggestion boost.
const ContentProduct = "product"

// Input carries the per-candidate signals the engine scores. All fields are
// plain values or read-only views into the viewer's context snapshot; the
// engine never mutates them.
type Input struct {
	// Connected is true when the author is an accepted connection of the viewer.
	Connected bool
	// Hashtags are the candidate's raw hashtags.
	Hashtags []string
	// Interests is the viewer's normalized interest set.
	Interests map[string]struct{}
	// Liked / Commented record prior engagement with this exact content item.
	Liked     bool
	Commented bool
	// ContentType is the candidate's content type ("image", "video", ...).
	ContentType string
	// TypePreference is the viewer's normalized content-type preference histogram.
	TypePreference map[string]float64
	// Trending is the combined trending hashtag and interest set.
	Trending map[string]struct{}
	// AuthorType is the candidate author's type (AuthorUser when unknown).
	AuthorType string
	// CreatedAt is the candidate's creation time; nil when unparsable.
	CreatedAt *time.Time
	// Raw engagement counts.
	Vibes    int
	Comments int
	Shares   int
}

// Breakdown exposes each scoring component for a candidate. Used by the
// edge-case partitioning and by explain output; the feed pipeline itself
// only orders by Total.
type Breakdown struct {
	Connection  float64 `json:"connection"`
	Interest    float64 `json:"interest"`
	Interaction float64 `json:"interaction"`
	ContentType float64 `json:"content_type"`
	Trending    float64 `json:"trending"`
	Suggestion  float64 `json:"suggestion"`
	TimeDecay   float64 `json:"time_decay"`
	Engagement  float64 `json:"engagement"`
	Total       float64 `json:"total"`
}

// Engine computes composite relevance scores. It is immutable after
// construction and safe for concurrent use.
type Engine struct {
	weights    Weights
	typeScores ContentTypeScores
}

// NewEngine creates a scoring engine from calibrated weights and base
// content-type scores. Nil arguments fall back to the defaults.
func NewEngine(weights *Weights, typeScores ContentTypeScores) *Engine {
	if weights == nil {
		weights = DefaultWeights()
	}
	if typeScores == nil {
		typeScores = DefaultContentTypeScores()
	}

	// Copy the map so later caller mutation cannot change scoring behavior.
	scores := make(ContentTypeScores, len(typeScores))
	for k, v := range typeScores {
		scores[k] = v
	}

	return &Engine{
		weights:    *weights,
		typeScores: scores,
	}
}

// Weights returns a copy of the engine's weight configuration.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the composite relevance score for one candidate at the
// given reference time.
//
// Formula:
//
//	total = (connection*Wc + interest*Wi + interaction*Wx +
//	         content_type*Wt + trending*Wr + suggestion) * time_decay + engagement
//
// rounded to 3 decimal places. Every component is non-negative, so the
// total is non-negative and finite by construction.
//
// A panic while scoring (malformed candidate data) is contained to this
// candidate: the breakdown is zeroed and the total reported as 0.0 so a
// single bad record cannot abort a batch.
func (e *Engine) Score(in Input, now time.Time) (b Breakdown) {
	defer func() {
		if r := recover(); r != nil {
			b = Breakdown{}
		}
	}()

	b.Connection = ConnectionScore(in.Connected)
	b.Interest = InterestScore(in.Hashtags, in.Interests)
	b.Interaction = InteractionScore(in.Liked, in.Commented)
	b.ContentType = e.contentTypeScore(in.ContentType, in.TypePreference)
	b.Trending = TrendingScore(in.Hashtags, in.Trending)
	b.Suggestion = e.suggestionScore(in, b.Interest)
	b.TimeDecay = TimeDecay(in.CreatedAt, now)
	b.Engagement = EngagementBoost(in.Vibes, in.Comments, in.Shares)

	weighted := b.Connection*e.weights.Connection +
		b.Interest*e.weights.Interest +
		b.Interaction*e.weights.Interaction +
		b.ContentType*e.weights.ContentType +
		b.Trending*e.weights.Trending +
		b.Suggestion

	b.Total = round3(weighted*b.TimeDecay + b.Engagement)
	return b
}

// contentTypeScore resolves the preference and base lookups with their
// defaults and averages them.
func (e *Engine) contentTypeScore(contentType string, preference map[string]float64) float64 {
	pref := DefaultTypePreference
	if p, ok := preference[contentType]; ok {
		pref = p
	}

	base := DefaultBaseTypeScore
	if s, ok := e.typeScores[contentType]; ok {
		base = s
	}

	return ContentTypeScore(pref, base)
}

// suggestionScore boosts discoverable authors the viewer is not yet
// connected to. Connected authors and candidates with zero interest overlap
// get no boost: suggestions must be at least tangentially relevant.
func (e *Engine) suggestionScore(in Input, interestScore float64) float64 {
	if in.Connected {
		return 0.0
	}
	if interestScore == 0 {
		return 0.0
	}

	switch in.AuthorType {
	case AuthorCommunity:
		return e.weights.SuggestionCommunity
	case AuthorBrand:
		return e.weights.SuggestionBrand
	}

	if in.ContentType == ContentProduct {
		return e.weights.SuggestionProduct
	}

	return 0.0
}
