package ranking

import (
	"testing"
	"time"
)

func testEngine() *Engine {
	return NewEngine(DefaultWeights(), DefaultContentTypeScores())
}

// TestEngineScore_ConnectionDominatesStaleViral is the end-to-end ordering
// property: a fresh post from a connection with interest overlap must
// outrank a stale viral post from a stranger.
func TestEngineScore_ConnectionDominatesStaleViral(t *testing.T) {
	engine := testEngine()
	now := time.Now()
	interests := map[string]struct{}{"music": {}}

	fresh := now.Add(-30 * time.Minute)
	stale := now.Add(-10 * 24 * time.Hour)

	a := engine.Score(Input{
		Connected:  true,
		Hashtags:   []string{"music"},
		Interests:  interests,
		AuthorType: AuthorUser,
		CreatedAt:  &fresh,
	}, now)

	b := engine.Score(Input{
		Connected:  false,
		Hashtags:   nil,
		Interests:  interests,
		AuthorType: AuthorUser,
		CreatedAt:  &stale,
		Vibes:      120,
	}, now)

	if a.Total <= b.Total {
		t.Errorf("expected connection-authored fresh post to outrank stale viral post: %f <= %f", a.Total, b.Total)
	}
	if a.Connection != 1.0 {
		t.Errorf("expected connection score 1.0, got %f", a.Connection)
	}
	if b.Connection != 0.0 {
		t.Errorf("expected connection score 0.0, got %f", b.Connection)
	}
	if b.TimeDecay != 0.2 {
		t.Errorf("expected decay 0.2 for 10-day-old post, got %f", b.TimeDecay)
	}
	if b.Engagement != 0.5 {
		t.Errorf("expected top engagement tier for 120 vibes, got %f", b.Engagement)
	}
}

// TestEngineScore_Composite verifies the full formula on a hand-computed case.
func TestEngineScore_Composite(t *testing.T) {
	engine := testEngine()
	now := time.Now()
	createdAt := now.Add(-2 * time.Hour) // decay 0.9

	b := engine.Score(Input{
		Connected:      true,
		Hashtags:       []string{"music", "chess"},
		Interests:      map[string]struct{}{"music": {}},
		Liked:          true,
		ContentType:    "video",
		TypePreference: map[string]float64{"video": 0.5},
		Trending:       map[string]struct{}{"music": {}},
		AuthorType:     AuthorUser,
		CreatedAt:      &createdAt,
		Vibes:          11, // e = 5.5 -> boost 0.1
	}, now)

	// connection 1.0*0.7 + interest 0.5*0.6 + interaction 0.8*0.8 +
	// contentType avg(0.5,0.9)=0.7*0.5 + trending 0.6*0.6 + suggestion 0
	// = 0.7 + 0.3 + 0.64 + 0.35 + 0.36 = 2.35
	// total = 2.35*0.9 + 0.1 = 2.215
	if b.Total != 2.215 {
		t.Errorf("expected total 2.215, got %f", b.Total)
	}
}

// TestEngineScore_Suggestion tests the suggestion gating rules.
func TestEngineScore_Suggestion(t *testing.T) {
	engine := testEngine()
	now := time.Now()
	interests := map[string]struct{}{"music": {}}

	tests := []struct {
		name     string
		in       Input
		expected float64
	}{
		{
			name: "connected author gets no boost",
			in: Input{
				Connected:  true,
				Hashtags:   []string{"music"},
				Interests:  interests,
				AuthorType: AuthorCommunity,
			},
			expected: 0.0,
		},
		{
			name: "zero interest overlap gets no boost",
			in: Input{
				Hashtags:   []string{"chess"},
				Interests:  interests,
				AuthorType: AuthorCommunity,
			},
			expected: 0.0,
		},
		{
			name: "community author",
			in: Input{
				Hashtags:   []string{"music"},
				Interests:  interests,
				AuthorType: AuthorCommunity,
			},
			expected: 0.5,
		},
		{
			name: "brand author",
			in: Input{
				Hashtags:   []string{"music"},
				Interests:  interests,
				AuthorType: AuthorBrand,
			},
			expected: 0.5,
		},
		{
			name: "product content from plain user",
			in: Input{
				Hashtags:    []string{"music"},
				Interests:   interests,
				AuthorType:  AuthorUser,
				ContentType: ContentProduct,
			},
			expected: 0.3,
		},
		{
			name: "plain user non-product gets no boost",
			in: Input{
				Hashtags:    []string{"music"},
				Interests:   interests,
				AuthorType:  AuthorUser,
				ContentType: "image",
			},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := engine.Score(tt.in, now)
			if !almostEqual(b.Suggestion, tt.expected) {
				t.Errorf("expected suggestion %f, got %f", tt.expected, b.Suggestion)
			}
		})
	}
}

// TestEngineScore_NonNegative verifies scores are non-negative and finite
// across a spread of inputs.
func TestEngineScore_NonNegative(t *testing.T) {
	engine := testEngine()
	now := time.Now()
	old := now.Add(-365 * 24 * time.Hour)

	inputs := []Input{
		{},
		{CreatedAt: &old},
		{Vibes: -5, Comments: -3, Shares: -1},
		{Hashtags: []string{""}, Interests: map[string]struct{}{"": {}}},
	}

	for i, in := range inputs {
		b := engine.Score(in, now)
		if b.Total < 0 {
			t.Errorf("input %d: negative total %f", i, b.Total)
		}
	}
}

// TestEngineScore_UnknownTypeDefaults verifies lookup defaults for a
// content type absent from both maps.
func TestEngineScore_UnknownTypeDefaults(t *testing.T) {
	engine := testEngine()
	b := engine.Score(Input{ContentType: "hologram"}, time.Now())

	// avg(DefaultTypePreference 0.3, DefaultBaseTypeScore 0.5) = 0.4
	if !almostEqual(b.ContentType, 0.4) {
		t.Errorf("expected content type score 0.4, got %f", b.ContentType)
	}
}

// TestEngineScore_NilMaps verifies nil context maps are safe and score zero
// for their components.
func TestEngineScore_NilMaps(t *testing.T) {
	engine := testEngine()
	b := engine.Score(Input{
		Hashtags:    []string{"music"},
		ContentType: "image",
	}, time.Now())

	if b.Interest != 0.0 {
		t.Errorf("expected interest 0.0 with nil interests, got %f", b.Interest)
	}
	if b.Trending != 0.0 {
		t.Errorf("expected trending 0.0 with nil trending set, got %f", b.Trending)
	}
	if b.TimeDecay != UnknownAgeDecay {
		t.Errorf("expected decay %f with nil timestamp, got %f", UnknownAgeDecay, b.TimeDecay)
	}
}

// TestNewEngine_CopiesTypeScores verifies later mutation of the caller's
// map cannot change scoring behavior.
func TestNewEngine_CopiesTypeScores(t *testing.T) {
	scores := DefaultContentTypeScores()
	engine := NewEngine(DefaultWeights(), scores)

	before := engine.Score(Input{ContentType: "image"}, time.Now())
	scores["image"] = 0.0
	after := engine.Score(Input{ContentType: "image"}, time.Now())

	if before.ContentType != after.ContentType {
		t.Errorf("engine scoring changed after caller mutated type scores: %f != %f",
			before.ContentType, after.ContentType)
	}
}

// TestNewEngine_NilDefaults verifies nil constructor arguments fall back to
// the default configuration.
func TestNewEngine_NilDefaults(t *testing.T) {
	engine := NewEngine(nil, nil)
	if engine.Weights() != *DefaultWeights() {
		t.Errorf("expected default weights, got %+v", engine.Weights())
	}
}
