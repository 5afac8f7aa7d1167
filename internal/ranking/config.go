package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Weights defines the multipliers applied to each scoring component.
// The defaults are behavioral constants: changing them changes feed
// ordering for every user, so overrides go through the calibration file.
type Weights struct {
	Connection          float64 `json:"connection"`           // Weight for accepted-connection authorship (default: 0.7)
	Interest            float64 `json:"interest"`             // Weight for hashtag/interest overlap (default: 0.6)
	Interaction         float64 `json:"interaction"`          // Weight for prior like/comment history (default: 0.8)
	ContentType         float64 `json:"content_type"`         // Weight for content-type affinity (default: 0.5)
	Trending            float64 `json:"trending"`             // Weight for trending tag overlap (default: 0.6)
	SuggestionCommunity float64 `json:"suggestion_community"` // Additive boost for unconnected community authors (default: 0.5)
	SuggestionBrand     float64 `json:"suggestion_brand"`     // Additive boost for unconnected brand authors (default: 0.5)
	SuggestionProduct   float64 `json:"suggestion_product"`   // Additive boost for unconnected product content (default: 0.3)
}

// ContentTypeScores maps a content type to its base desirability score.
// Unknown types fall back to DefaultBaseTypeScore.
type ContentTypeScores map[string]float64

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version    string            `json:"version"`               // Config version for future compatibility
	Weights    Weights           `json:"weights"`               // Weight overrides
	TypeScores ContentTypeScores `json:"type_scores,omitempty"` // Base content-type score overrides
}

// DefaultWeights returns the default scoring weight configuration.
//
// Composite formula:
//
//	total = (connection*0.7 + interest*0.6 + interaction*0.8 +
//	         content_type*0.5 + trending*0.6 + suggestion) * time_decay + engagement_boost
//
// The suggestion component is already expressed in score units
// (community/brand 0.5, product 0.3) and is added unweighted.
func DefaultWeights() *Weights {
	return &Weights{
		Connection:          0.7,
		Interest:            0.6,
		Interaction:         0.8,
		ContentType:         0.5,
		Trending:            0.6,
		SuggestionCommunity: 0.5,
		SuggestionBrand:     0.5,
		SuggestionProduct:   0.3,
	}
}

// DefaultContentTypeScores returns the default base scores per content type.
func DefaultContentTypeScores() ContentTypeScores {
	return ContentTypeScores{
		"image":          0.8,
		"video":          0.9,
		"text":           0.6,
		"product":        0.7,
		"community_post": 0.8,
	}
}

// LoadCalibration loads scoring weights from a JSON calibration file.
// Partial configurations are merged with defaults for graceful degradation.
// On any error the defaults are returned alongside the error so callers can
// proceed with stock behavior.
func LoadCalibration(filePath string) (*Weights, ContentTypeScores, error) {
	if filePath == "" {
		return DefaultWeights(), DefaultContentTypeScores(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), DefaultContentTypeScores(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), DefaultContentTypeScores(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	typeScores := MergeTypeScores(DefaultContentTypeScores(), config.TypeScores)
	logCalibrationOverrides(defaults, merged)

	return merged, typeScores, nil
}

// MergeCalibration merges override weights with base weights.
// Only non-zero values from the override are applied, which allows
// partial overrides in the calibration file.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Connection != 0 {
		result.Connection = override.Connection
	}
	if override.Interest != 0 {
		result.Interest = override.Interest
	}
	if override.Interaction != 0 {
		result.Interaction = override.Interaction
	}
	if override.ContentType != 0 {
		result.ContentType = override.ContentType
	}
	if override.Trending != 0 {
		result.Trending = override.Trending
	}
	if override.SuggestionCommunity != 0 {
		result.SuggestionCommunity = override.SuggestionCommunity
	}
	if override.SuggestionBrand != 0 {
		result.SuggestionBrand = override.SuggestionBrand
	}
	if override.SuggestionProduct != 0 {
		result.SuggestionProduct = override.SuggestionProduct
	}

	return &result
}

// MergeTypeScores merges override base type scores onto the defaults.
// Override entries replace defaults per type; unknown types may be added.
func MergeTypeScores(base ContentTypeScores, override ContentTypeScores) ContentTypeScores {
	result := make(ContentTypeScores, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v != 0 {
			result[k] = v
		}
	}
	return result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	if loaded.Connection != defaults.Connection {
		overrides = append(overrides, fmt.Sprintf("connection: %.2f -> %.2f",
			defaults.Connection, loaded.Connection))
	}
	if loaded.Interest != defaults.Interest {
		overrides = append(overrides, fmt.Sprintf("interest: %.2f -> %.2f",
			defaults.Interest, loaded.Interest))
	}
	if loaded.Interaction != defaults.Interaction {
		overrides = append(overrides, fmt.Sprintf("interaction: %.2f -> %.2f",
			defaults.Interaction, loaded.Interaction))
	}
	if loaded.ContentType != defaults.ContentType {
		overrides = append(overrides, fmt.Sprintf("content_type: %.2f -> %.2f",
			defaults.ContentType, loaded.ContentType))
	}
	if loaded.Trending != defaults.Trending {
		overrides = append(overrides, fmt.Sprintf("trending: %.2f -> %.2f",
			defaults.Trending, loaded.Trending))
	}
	if loaded.SuggestionCommunity != defaults.SuggestionCommunity {
		overrides = append(overrides, fmt.Sprintf("suggestion_community: %.2f -> %.2f",
			defaults.SuggestionCommunity, loaded.SuggestionCommunity))
	}
	if loaded.SuggestionBrand != defaults.SuggestionBrand {
		overrides = append(overrides, fmt.Sprintf("suggestion_brand: %.2f -> %.2f",
			defaults.SuggestionBrand, loaded.SuggestionBrand))
	}
	if loaded.SuggestionProduct != defaults.SuggestionProduct {
		overrides = append(overrides, fmt.Sprintf("suggestion_product: %.2f -> %.2f",
			defaults.SuggestionProduct, loaded.SuggestionProduct))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
