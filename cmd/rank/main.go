// Package main is the offline ranking CLI, used for calibration and
// evaluation work: it ranks a JSON file of candidate records for a user and
// prints the resulting order.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibecircle/feedcore/internal/config"
	"github.com/vibecircle/feedcore/internal/feed"
	"github.com/vibecircle/feedcore/internal/profile"
	"github.com/vibecircle/feedcore/internal/ranking"
	"github.com/vibecircle/feedcore/internal/store"
	"github.com/vibecircle/feedcore/internal/tracing"
)

// fixtures seeds the in-memory store when no database is configured.
type fixtures struct {
	Connections       []string            `json:"connections,omitempty"`
	Interests         []string            `json:"interests,omitempty"`
	Likes             []fixtureLike       `json:"likes,omitempty"`
	Comments          []string            `json:"comments,omitempty"`
	TrendingHashtags  []string            `json:"trending_hashtags,omitempty"`
	TrendingInterests []string            `json:"trending_interests,omitempty"`
	TypePreference    map[string]float64  `json:"type_preference,omitempty"`
}

type fixtureLike struct {
	ContentID   string `json:"content_id"`
	ContentType string `json:"content_type,omitempty"`
}

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file")
	userID := flag.String("user", "", "user id to rank for (required)")
	candidatesPath := flag.String("candidates", "", "path to JSON file of candidate records (required)")
	fixturesPath := flag.String("fixtures", "", "path to JSON fixture file for the in-memory store")
	explain := flag.Bool("explain", false, "print per-candidate score breakdowns")
	flag.Parse()

	if *help {
		fmt.Println("Feedcore offline ranker")
		fmt.Println()
		fmt.Println("Usage: rank -user <id> -candidates <file> [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *userID == "" || *candidatesPath == "" {
		fmt.Fprintln(os.Stderr, "error: -user and -candidates are required (see -help)")
		os.Exit(2)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	defer provider.Shutdown(context.Background())

	weights, typeScores := loadCalibration(cfg.CalibrationPath, logger)
	engine := ranking.NewEngine(weights, typeScores)

	contentStore, cleanup, err := buildStore(cfg, *fixturesPath, logger)
	if err != nil {
		logger.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var cacheOpts []profile.TrendingCacheOption
	cacheOpts = append(cacheOpts, profile.WithTrendingTTL(cfg.TrendingTTL), profile.WithTrendingLogger(logger))
	if cfg.RedisAddr != "" {
		cacheOpts = append(cacheOpts, profile.WithTrendingRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})))
	}
	trendingCache := profile.NewTrendingCache(contentStore, cacheOpts...)

	loader := profile.NewLoader(contentStore, trendingCache,
		profile.WithTimeout(cfg.StoreTimeout),
		profile.WithLogger(logger),
	)

	gen := feed.NewGenerator(loader, engine,
		feed.WithFeedSize(cfg.FeedSize),
		feed.WithAuthorCap(cfg.AuthorCap),
		feed.WithMinMatched(cfg.MinMatched),
		feed.WithScoringWorkers(cfg.ScoringWorkers),
		feed.WithGeneratorLogger(logger),
	)

	raws, err := readCandidates(*candidatesPath)
	if err != nil {
		logger.Error("reading candidates failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	ranked := gen.GenerateFeed(ctx, *userID, raws)

	adapters := feed.DefaultAdapters()
	userCtx := loader.Load(ctx, *userID)
	for i, raw := range ranked {
		c, err := adapters.Convert(raw)
		if err != nil {
			fmt.Printf("%2d. <unconvertible record>\n", i+1)
			continue
		}
		if *explain {
			b := engine.Score(feed.RankingInput(userCtx, c), time.Now())
			detail, _ := json.Marshal(b)
			fmt.Printf("%2d. %s  %s\n", i+1, c.ID, detail)
			continue
		}
		fmt.Printf("%2d. %s\n", i+1, c.ID)
	}
}

// newLogger mirrors the service convention: JSON logs in production, text
// for development.
func newLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}

// loadCalibration merges the optional calibration file over the defaults.
func loadCalibration(path string, logger *slog.Logger) (*ranking.Weights, ranking.ContentTypeScores) {
	if path == "" {
		return ranking.DefaultWeights(), ranking.DefaultContentTypeScores()
	}

	weights, typeScores, err := ranking.LoadCalibration(path)
	if err != nil {
		logger.Warn("calibration load failed, using defaults", "path", path, "error", err)
		return ranking.DefaultWeights(), ranking.DefaultContentTypeScores()
	}
	return weights, typeScores
}

// buildStore connects Postgres when configured, otherwise seeds the
// in-memory store from the fixture file.
func buildStore(cfg *config.Config, fixturesPath string, logger *slog.Logger) (profile.ContentStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}

	mem := profile.NewMemStore()
	if fixturesPath != "" {
		if err := seedMemStore(mem, fixturesPath, logger); err != nil {
			return nil, nil, err
		}
	}
	return mem, func() {}, nil
}

func seedMemStore(mem *profile.MemStore, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading fixtures: %w", err)
	}

	var byUser map[string]fixtures
	if err := json.Unmarshal(data, &byUser); err != nil {
		return fmt.Errorf("parsing fixtures: %w", err)
	}

	for userID, f := range byUser {
		for _, other := range f.Connections {
			mem.AddConnection(userID, other)
		}
		for _, interest := range f.Interests {
			mem.AddInterest(userID, interest)
		}
		for _, like := range f.Likes {
			mem.AddLike(userID, like.ContentID, like.ContentType)
		}
		for _, contentID := range f.Comments {
			mem.AddComment(userID, contentID)
		}
		if len(f.TypePreference) > 0 {
			mem.SetTypePreference(userID, f.TypePreference)
		}
		// Trending aggregates are global; last fixture entry wins.
		if len(f.TrendingHashtags) > 0 {
			mem.SetTrendingHashtags(f.TrendingHashtags)
		}
		if len(f.TrendingInterests) > 0 {
			mem.SetTrendingInterests(f.TrendingInterests)
		}
	}

	logger.Info("in-memory store seeded", "users", len(byUser))
	return nil
}

// readCandidates decodes a JSON array of candidate records into the generic
// map form the adapters accept.
func readCandidates(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}

	var raws []any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parsing candidates: %w", err)
	}
	return raws, nil
}
