// Package ranking provides the weighted scoring model for feed
// personalization, with calibration support for deploy-time tuning.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, typeScores, err := ranking.LoadCalibration("configs/feed.calibration.json")
//	if err != nil {
//		slog.Warn("using default weights", "error", err)
//	}
//
//	engine := ranking.NewEngine(weights, typeScores)
//	breakdown := engine.Score(ranking.Input{
//		Connected:      true,
//		Hashtags:       []string{"synthwave"},
//		Interests:      userContext.Interests,
//		ContentType:    "video",
//		TypePreference: userContext.TypePreference,
//		Trending:       userContext.TrendingSet(),
//		AuthorType:     ranking.AuthorUser,
//		CreatedAt:      &createdAt,
//		Vibes:          12,
//	}, time.Now())
//	score := breakdown.Total
//
// Weight Functions:
//
// The individual score functions (ConnectionScore, InterestScore,
// InteractionScore, ContentTypeScore, TrendingScore, TimeDecay,
// EngagementBoost) each return values in the [0, 1] range (EngagementBoost
// tops out at 0.5) and are composable; Engine.Score combines them with the
// calibrated weights.
//
// Calibration:
//
// The calibration system allows deploy-time tuning of scoring weights via a
// JSON configuration file loaded at startup. This enables A/B testing and
// optimization without code changes (but requires a redeploy or restart to
// pick up new configuration).
package ranking
