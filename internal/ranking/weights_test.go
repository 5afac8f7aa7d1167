package ranking

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.0001
}

// TestConnectionScore tests the connection score calculation.
func TestConnectionScore(t *testing.T) {
	if got := ConnectionScore(true); got != 1.0 {
		t.Errorf("connected author: expected 1.0, got %f", got)
	}
	if got := ConnectionScore(false); got != 0.0 {
		t.Errorf("unconnected author: expected 0.0, got %f", got)
	}
}

// TestInterestScore tests the hashtag/interest overlap calculation.
func TestInterestScore(t *testing.T) {
	interests := map[string]struct{}{
		"music":  {},
		"skate":  {},
		"techno": {},
	}

	tests := []struct {
		name     string
		hashtags []string
		expected float64
	}{
		{
			name:     "no hashtags",
			hashtags: nil,
			expected: 0.0,
		},
		{
			name:     "empty hashtags",
			hashtags: []string{},
			expected: 0.0,
		},
		{
			name:     "full overlap",
			hashtags: []string{"music", "skate"},
			expected: 1.0,
		},
		{
			name:     "half overlap",
			hashtags: []string{"music", "gardening"},
			expected: 0.5,
		},
		{
			name:     "no overlap",
			hashtags: []string{"gardening", "chess"},
			expected: 0.0,
		},
		{
			name:     "case and whitespace normalized",
			hashtags: []string{" Music ", "TECHNO"},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InterestScore(tt.hashtags, interests)
			if !almostEqual(result, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
			if result < 0 || result > 1 {
				t.Errorf("interest score out of [0,1]: %f", result)
			}
		})
	}
}

// TestInterestScore_EmptyInterests verifies zero interest set yields zero.
func TestInterestScore_EmptyInterests(t *testing.T) {
	if got := InterestScore([]string{"music"}, nil); got != 0.0 {
		t.Errorf("expected 0.0 with no interests, got %f", got)
	}
}

// TestInteractionScore tests the prior-engagement score with its cap.
func TestInteractionScore(t *testing.T) {
	tests := []struct {
		name      string
		liked     bool
		commented bool
		expected  float64
	}{
		{name: "no interaction", liked: false, commented: false, expected: 0.0},
		{name: "liked only", liked: true, commented: false, expected: 0.8},
		{name: "commented only", liked: false, commented: true, expected: 0.8},
		{name: "liked and commented capped at 1", liked: true, commented: true, expected: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InteractionScore(tt.liked, tt.commented)
			if !almostEqual(result, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestContentTypeScore tests the preference/base average.
func TestContentTypeScore(t *testing.T) {
	tests := []struct {
		name       string
		preference float64
		base       float64
		expected   float64
	}{
		{name: "strong preference strong base", preference: 0.8, base: 0.9, expected: 0.85},
		{name: "default preference default base", preference: 0.3, base: 0.5, expected: 0.4},
		{name: "zero preference", preference: 0.0, base: 0.8, expected: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ContentTypeScore(tt.preference, tt.base)
			if !almostEqual(result, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestTrendingScore tests per-match accumulation and its cap.
func TestTrendingScore(t *testing.T) {
	trending := map[string]struct{}{
		"vibes":  {},
		"techno": {},
		"skate":  {},
	}

	tests := []struct {
		name     string
		hashtags []string
		expected float64
	}{
		{name: "no hashtags", hashtags: nil, expected: 0.0},
		{name: "one match", hashtags: []string{"vibes", "chess"}, expected: 0.6},
		{name: "two matches capped", hashtags: []string{"vibes", "techno"}, expected: 1.0},
		{name: "three matches capped", hashtags: []string{"vibes", "techno", "skate"}, expected: 1.0},
		{name: "no matches", hashtags: []string{"chess"}, expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrendingScore(tt.hashtags, trending)
			if !almostEqual(result, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestTimeDecay tests the age-bucket boundaries.
func TestTimeDecay(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		age      time.Duration
		expected float64
	}{
		{name: "30 minutes", age: 30 * time.Minute, expected: 1.0},
		{name: "just under 1 hour", age: 59 * time.Minute, expected: 1.0},
		{name: "2 hours", age: 2 * time.Hour, expected: 0.9},
		{name: "just under 6 hours", age: 6*time.Hour - time.Second, expected: 0.9},
		{name: "12 hours", age: 12 * time.Hour, expected: 0.8},
		{name: "2 days", age: 48 * time.Hour, expected: 0.6},
		{name: "5 days", age: 5 * 24 * time.Hour, expected: 0.4},
		{name: "10 days", age: 10 * 24 * time.Hour, expected: 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createdAt := now.Add(-tt.age)
			result := TimeDecay(&createdAt, now)
			if !almostEqual(result, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestTimeDecay_NilTimestamp verifies the unknown-age default.
func TestTimeDecay_NilTimestamp(t *testing.T) {
	if got := TimeDecay(nil, time.Now()); got != UnknownAgeDecay {
		t.Errorf("expected %f for nil timestamp, got %f", UnknownAgeDecay, got)
	}
}

// TestTimeDecay_NonIncreasing verifies decay never rises as age grows
// across the bucket boundaries.
func TestTimeDecay_NonIncreasing(t *testing.T) {
	now := time.Now()
	ages := []time.Duration{
		30 * time.Minute,
		time.Hour,
		6 * time.Hour,
		24 * time.Hour,
		72 * time.Hour,
		7 * 24 * time.Hour,
		30 * 24 * time.Hour,
	}

	prev := math.Inf(1)
	for _, age := range ages {
		createdAt := now.Add(-age)
		decay := TimeDecay(&createdAt, now)
		if decay > prev {
			t.Errorf("decay increased at age %s: %f > %f", age, decay, prev)
		}
		prev = decay
	}
}

// TestEngagementBoost tests the tier boundaries against the documented
// thresholds (e = vibes*0.5 + comments*0.3 + shares*0.2).
func TestEngagementBoost(t *testing.T) {
	tests := []struct {
		name     string
		vibes    int
		comments int
		shares   int
		expected float64
	}{
		{name: "zero engagement", expected: 0.0},
		{name: "e=5 exactly is not boosted", vibes: 10, expected: 0.0},
		{name: "e=5.5 lands in lowest tier", vibes: 11, expected: 0.1},
		{name: "e=10.5 lands in 0.2 tier", vibes: 21, expected: 0.2},
		// vibes=60 gives e=30, which is the >20 tier, not >50.
		{name: "vibes 60 only", vibes: 60, expected: 0.3},
		{name: "e=51 lands in top tier", vibes: 102, expected: 0.5},
		{name: "mixed counts", vibes: 20, comments: 30, shares: 5, expected: 0.2},
		{name: "viral", vibes: 120, comments: 40, shares: 30, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EngagementBoost(tt.vibes, tt.comments, tt.shares)
			if !almostEqual(result, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

// TestNormalizeTag tests tag canonicalization.
func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "Music", expected: "music"},
		{in: "  TECHNO  ", expected: "techno"},
		{in: "skate", expected: "skate"},
		{in: "", expected: ""},
	}

	for _, tt := range tests {
		if got := NormalizeTag(tt.in); got != tt.expected {
			t.Errorf("NormalizeTag(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}
