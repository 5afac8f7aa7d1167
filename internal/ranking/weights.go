package ranking

import (
	"math"
	"strings"
	"time"
)

// Score signal constants. These are behavioral constants shared with the
// historical ranking behavior; treat changes as a product decision.
const (
	// LikeSignal is the interaction score contribution for a prior like.
	LikeSignal = 0.8
	// CommentSignal is the interaction score contribution for a prior comment.
	CommentSignal = 0.8
	// DefaultTypePreference is used when the user has no recorded preference
	// for a candidate's content type.
	DefaultTypePreference = 0.3
	// DefaultBaseTypeScore is used for content types absent from the base
	// score table.
	DefaultBaseTypeScore = 0.5
	// TrendingPerMatch is the trending score contribution per matched tag.
	TrendingPerMatch = 0.6
	// UnknownAgeDecay is the time-decay applied when a candidate has no
	// usable timestamp.
	UnknownAgeDecay = 0.5
)

// NormalizeTag canonicalizes a hashtag or interest keyword for matching:
// lower-cased with surrounding whitespace stripped.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// ConnectionScore returns 1.0 when the candidate's author is an accepted
// connection of the viewer, otherwise 0.0.
func ConnectionScore(connected bool) float64 {
	if connected {
		return 1.0
	}
	return 0.0
}

// InterestScore computes the fraction of the candidate's hashtags that
// overlap the viewer's interests, in [0, 1].
//
// Parameters:
//   - hashtags: The candidate's hashtags (normalized internally)
//   - interests: The viewer's normalized interest set
//
// A candidate with no hashtags scores 0.
func InterestScore(hashtags []string, interests map[string]struct{}) float64 {
	if len(hashtags) == 0 || len(interests) == 0 {
		return 0.0
	}

	matched := 0
	for _, tag := range hashtags {
		if _, ok := interests[NormalizeTag(tag)]; ok {
			matched++
		}
	}

	return clamp01(float64(matched) / float64(len(hashtags)))
}

// InteractionScore scores prior engagement with this exact content item:
// LikeSignal for a recorded like plus CommentSignal for a recorded comment,
// capped at 1.0.
func InteractionScore(liked, commented bool) float64 {
	score := 0.0
	if liked {
		score += LikeSignal
	}
	if commented {
		score += CommentSignal
	}
	return clamp01(score)
}

// ContentTypeScore averages the viewer's preference for a content type with
// that type's base score. Callers resolve lookups and apply
// DefaultTypePreference / DefaultBaseTypeScore for missing entries.
func ContentTypeScore(preference, base float64) float64 {
	return clamp01((preference + base) / 2.0)
}

// TrendingScore awards TrendingPerMatch per candidate hashtag present in
// the trending set (hashtags and trending interests combined), capped at 1.0.
func TrendingScore(hashtags []string, trending map[string]struct{}) float64 {
	if len(hashtags) == 0 || len(trending) == 0 {
		return 0.0
	}

	score := 0.0
	for _, tag := range hashtags {
		if _, ok := trending[NormalizeTag(tag)]; ok {
			score += TrendingPerMatch
		}
	}

	return clamp01(score)
}

// TimeDecay returns the age-bucket decay multiplier for a candidate.
// Buckets: <1h 1.0, <6h 0.9, <24h 0.8, <72h 0.6, <1 week 0.4, older 0.2.
// A nil timestamp (unparsable upstream) yields UnknownAgeDecay.
// Decay is non-increasing across bucket boundaries as age grows.
func TimeDecay(createdAt *time.Time, now time.Time) float64 {
	if createdAt == nil {
		return UnknownAgeDecay
	}

	age := now.Sub(*createdAt)
	switch {
	case age < time.Hour:
		return 1.0
	case age < 6*time.Hour:
		return 0.9
	case age < 24*time.Hour:
		return 0.8
	case age < 72*time.Hour:
		return 0.6
	case age < 7*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

// EngagementBoost converts raw engagement counts into an additive bonus.
// The weighted engagement e = vibes*0.5 + comments*0.3 + shares*0.2 maps to
// tiers: e>50 -> 0.5, e>20 -> 0.3, e>10 -> 0.2, e>5 -> 0.1, else 0.
func EngagementBoost(vibes, comments, shares int) float64 {
	e := float64(vibes)*0.5 + float64(comments)*0.3 + float64(shares)*0.2

	switch {
	case e > 50:
		return 0.5
	case e > 20:
		return 0.3
	case e > 10:
		return 0.2
	case e > 5:
		return 0.1
	default:
		return 0.0
	}
}

// clamp01 bounds a score component to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// round3 rounds a composite score to 3 decimal places, the precision the
// rest of the pipeline (sorting, logging, explain output) works with.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
