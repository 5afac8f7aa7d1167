// Package store provides the PostgreSQL implementation of the content store
// queries that feed ranking reads from.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/vibecircle/feedcore/internal/profile"
	"github.com/vibecircle/feedcore/internal/tracing"
)

// Fixed read queries. Ranking only ever reads; writes belong to the content
// services that own these tables.
const (
	acceptedConnectionsQuery = `
		SELECT c1.friend_id
		FROM connections c1
		JOIN connections c2
		  ON c2.user_id = c1.friend_id
		 AND c2.friend_id = c1.user_id
		 AND c2.status = 'accepted'
		WHERE c1.user_id = $1
		  AND c1.status = 'accepted'
		  AND c1.friend_id <> $1
	`

	interestsQuery = `
		SELECT interest
		FROM profile_interests
		WHERE user_id = $1
	`

	likedContentQuery = `
		SELECT content_id
		FROM content_likes
		WHERE user_id = $1
	`

	commentedContentQuery = `
		SELECT DISTINCT content_id
		FROM content_comments
		WHERE user_id = $1
	`

	typePreferenceQuery = `
		SELECT content_type, COUNT(*)::float8
		FROM content_likes
		WHERE user_id = $1
		  AND content_type <> ''
		GROUP BY content_type
	`

	trendingHashtagsQuery = `
		SELECT tag
		FROM (
			SELECT unnest(hashtags) AS tag
			FROM posts
			WHERE created_at > now() - make_interval(days => $1)
		) tags
		GROUP BY tag
		HAVING COUNT(*) > $2
	`

	trendingInterestsQuery = `
		SELECT interest
		FROM profile_interests
		WHERE updated_at > now() - make_interval(days => $1)
		GROUP BY interest
		HAVING COUNT(DISTINCT user_id) > $2
	`
)

// Postgres implements profile.ContentStore against the platform database.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates a store over an existing database handle.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// Open connects to the database and verifies the connection.
func Open(dsn string, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgres(db, logger), nil
}

// Close releases the underlying database handle.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// GetAcceptedConnections returns author ids with an accepted bidirectional
// connection to the user, excluding the user themselves.
func (s *Postgres) GetAcceptedConnections(ctx context.Context, userID string) (ids []string, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "accepted_connections")
	defer func() { endSpan(err) }()

	return s.queryStrings(ctx, acceptedConnectionsQuery, userID)
}

// GetInterests returns the user's raw profile interest keywords.
func (s *Postgres) GetInterests(ctx context.Context, userID string) (interests []string, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "interests")
	defer func() { endSpan(err) }()

	return s.queryStrings(ctx, interestsQuery, userID)
}

// GetInteractionHistory returns the content ids the user liked and
// commented on.
func (s *Postgres) GetInteractionHistory(ctx context.Context, userID string) (history profile.InteractionHistory, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "interaction_history")
	defer func() { endSpan(err) }()

	history.Liked, err = s.queryStrings(ctx, likedContentQuery, userID)
	if err != nil {
		return profile.InteractionHistory{}, err
	}
	history.Commented, err = s.queryStrings(ctx, commentedContentQuery, userID)
	if err != nil {
		return profile.InteractionHistory{}, err
	}
	return history, nil
}

// GetContentTypePreference returns the user's liked-content-type histogram.
// An empty map means no recorded engagements.
func (s *Postgres) GetContentTypePreference(ctx context.Context, userID string) (histogram map[string]float64, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "type_preference")
	defer func() { endSpan(err) }()

	rows, err := s.db.QueryContext(ctx, typePreferenceQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("type preference query: %w", err)
	}
	defer rows.Close()

	histogram = make(map[string]float64)
	for rows.Next() {
		var contentType string
		var count float64
		if err := rows.Scan(&contentType, &count); err != nil {
			return nil, fmt.Errorf("type preference scan: %w", err)
		}
		histogram[contentType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("type preference rows: %w", err)
	}
	return histogram, nil
}

// GetTrendingHashtags returns hashtags used more than minUsage times in the
// last windowDays days.
func (s *Postgres) GetTrendingHashtags(ctx context.Context, windowDays, minUsage int) (hashtags []string, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "trending_hashtags")
	defer func() { endSpan(err) }()

	return s.queryStrings(ctx, trendingHashtagsQuery, windowDays, minUsage)
}

// GetTrendingInterests returns interests appearing in more than minCount
// profiles updated in the last windowDays days.
func (s *Postgres) GetTrendingInterests(ctx context.Context, windowDays, minCount int) (interests []string, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "trending_interests")
	defer func() { endSpan(err) }()

	return s.queryStrings(ctx, trendingInterestsQuery, windowDays, minCount)
}

// queryStrings runs a query whose result is a single text column.
func (s *Postgres) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store query: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("store scan: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store rows: %w", err)
	}
	return values, nil
}
