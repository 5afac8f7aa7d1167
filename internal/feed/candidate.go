// Package feed turns raw candidate records into a personalized, diversity
// bounded feed ordering. The pipeline is fail-open: ranking degrades, it
// never blocks delivery.
package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/vibecircle/feedcore/internal/profile"
	"github.com/vibecircle/feedcore/internal/ranking"
)

// ContentType classifies a candidate's content.
type ContentType string

// Known content types. The scoring tables treat unknown types with
// conservative defaults, so new upstream types degrade gracefully.
const (
	ContentImage         ContentType = "image"
	ContentVideo         ContentType = "video"
	ContentText          ContentType = "text"
	ContentProduct       ContentType = "product"
	ContentCommunityPost ContentType = "community_post"
)

// AuthorType classifies a candidate's author for suggestion boosting.
type AuthorType string

// Known author types. Records that omit the author type default to
// AuthorUser, which carries no suggestion boost.
const (
	AuthorUser      AuthorType = "user"
	AuthorCommunity AuthorType = "community"
	AuthorBrand     AuthorType = "brand"
)

// Candidate is the canonical form of one unit of rankable content,
// produced by adapting a raw record. Immutable by convention.
type Candidate struct {
	ID          string
	AuthorID    string
	AuthorType  AuthorType
	ContentType ContentType
	Hashtags    []string
	// CreatedAt is nil when the source timestamp is missing or unparsable;
	// scoring applies the unknown-age decay in that case.
	CreatedAt *time.Time
	Vibes     int
	Comments  int
	Shares    int
}

// ScoredCandidate pairs a candidate with its composite score.
type ScoredCandidate struct {
	Candidate Candidate
	Score     float64
	Breakdown ranking.Breakdown

	// index is the candidate's position in the converted input, used for
	// deterministic tie-breaking.
	index int
}

// Conversion errors.
var (
	// ErrUnknownRecord means no registered adapter recognized the record's
	// source type. The record is skipped, never fatal.
	ErrUnknownRecord = errors.New("unknown raw record type")
	// ErrIncompleteRecord means an adapter recognized the record but it is
	// missing required identity fields.
	ErrIncompleteRecord = errors.New("raw record missing id or author")
)

// Adapter converts one known raw-record source type into a Candidate.
// Adapt returns ok=false when the record is not of this adapter's source
// type, letting the registry try the next adapter. A recognized but
// unusable record returns ok=true with an error.
type Adapter interface {
	Adapt(raw any) (c Candidate, ok bool, err error)
}

// Adapters is an ordered adapter registry.
type Adapters []Adapter

// DefaultAdapters returns the registry for the known upstream source types.
func DefaultAdapters() Adapters {
	return Adapters{
		PostAdapter{},
		ProductAdapter{},
		MapAdapter{},
	}
}

// Convert adapts a raw record via the first adapter that recognizes it.
// Returns ErrUnknownRecord when none does.
func (a Adapters) Convert(raw any) (Candidate, error) {
	for _, adapter := range a {
		c, ok, err := adapter.Adapt(raw)
		if !ok {
			continue
		}
		if err != nil {
			return Candidate{}, err
		}
		return c, nil
	}
	return Candidate{}, ErrUnknownRecord
}

// AuthorOf best-effort resolves the author of a raw record for the
// simple-diversity fallback. Returns "" when the record is unadaptable.
func (a Adapters) AuthorOf(raw any) string {
	c, err := a.Convert(raw)
	if err != nil {
		return ""
	}
	return c.AuthorID
}

// PostRecord is the content service's native post representation.
type PostRecord struct {
	ID           string   `json:"id"`
	AuthorID     string   `json:"author_id"`
	AuthorType   string   `json:"author_type,omitempty"`
	ContentType  string   `json:"content_type"`
	Hashtags     []string `json:"hashtags,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"` // RFC 3339; may be absent or garbled
	VibesCount   int      `json:"vibes_count"`
	CommentCount int      `json:"comment_count"`
	ShareCount   int      `json:"share_count"`
}

// PostAdapter adapts PostRecord values.
type PostAdapter struct{}

// Adapt converts a PostRecord (or pointer to one) into a Candidate.
func (PostAdapter) Adapt(raw any) (Candidate, bool, error) {
	var record PostRecord
	switch r := raw.(type) {
	case PostRecord:
		record = r
	case *PostRecord:
		if r == nil {
			return Candidate{}, true, ErrIncompleteRecord
		}
		record = *r
	default:
		return Candidate{}, false, nil
	}

	if record.ID == "" || record.AuthorID == "" {
		return Candidate{}, true, ErrIncompleteRecord
	}

	return Candidate{
		ID:          record.ID,
		AuthorID:    record.AuthorID,
		AuthorType:  authorTypeOrDefault(record.AuthorType),
		ContentType: ContentType(record.ContentType),
		Hashtags:    record.Hashtags,
		CreatedAt:   parseTimestamp(record.CreatedAt),
		Vibes:       record.VibesCount,
		Comments:    record.CommentCount,
		Shares:      record.ShareCount,
	}, true, nil
}

// ProductRecord is the commerce service's listing representation.
type ProductRecord struct {
	SKU        string     `json:"sku"`
	SellerID   string     `json:"seller_id"`
	SellerType string     `json:"seller_type,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	ListedAt   *time.Time `json:"listed_at,omitempty"`
	Vibes      int        `json:"vibes"`
	Comments   int        `json:"comments"`
	Shares     int        `json:"shares"`
}

// ProductAdapter adapts ProductRecord values. Listings always rank as
// product content.
type ProductAdapter struct{}

// Adapt converts a ProductRecord (or pointer to one) into a Candidate.
func (ProductAdapter) Adapt(raw any) (Candidate, bool, error) {
	var record ProductRecord
	switch r := raw.(type) {
	case ProductRecord:
		record = r
	case *ProductRecord:
		if r == nil {
			return Candidate{}, true, ErrIncompleteRecord
		}
		record = *r
	default:
		return Candidate{}, false, nil
	}

	if record.SKU == "" || record.SellerID == "" {
		return Candidate{}, true, ErrIncompleteRecord
	}

	return Candidate{
		ID:          record.SKU,
		AuthorID:    record.SellerID,
		AuthorType:  authorTypeOrDefault(record.SellerType),
		ContentType: ContentProduct,
		Hashtags:    record.Tags,
		CreatedAt:   record.ListedAt,
		Vibes:       record.Vibes,
		Comments:    record.Comments,
		Shares:      record.Shares,
	}, true, nil
}

// MapAdapter adapts JSON-decoded map[string]any records from external
// ingestion paths. Field access is explicit per key: records missing the
// identity fields are conversion errors, not guesses.
type MapAdapter struct{}

// Adapt converts a map record into a Candidate.
func (MapAdapter) Adapt(raw any) (Candidate, bool, error) {
	record, ok := raw.(map[string]any)
	if !ok {
		return Candidate{}, false, nil
	}

	id := stringField(record, "id")
	authorID := stringField(record, "author_id")
	if id == "" || authorID == "" {
		return Candidate{}, true, fmt.Errorf("%w: map record", ErrIncompleteRecord)
	}

	return Candidate{
		ID:          id,
		AuthorID:    authorID,
		AuthorType:  authorTypeOrDefault(stringField(record, "author_type")),
		ContentType: ContentType(stringField(record, "content_type")),
		Hashtags:    stringSliceField(record, "hashtags"),
		CreatedAt:   parseTimestamp(stringField(record, "created_at")),
		Vibes:       intField(record, "vibes_count"),
		Comments:    intField(record, "comment_count"),
		Shares:      intField(record, "share_count"),
	}, true, nil
}

// authorTypeOrDefault applies the AuthorUser default for absent values.
// Unknown values pass through; the engine only boosts known types.
func authorTypeOrDefault(authorType string) AuthorType {
	if authorType == "" {
		return AuthorUser
	}
	return AuthorType(authorType)
}

// parseTimestamp parses an RFC 3339 timestamp, returning nil for missing
// or unparsable values so scoring falls back to the unknown-age decay.
func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func stringField(record map[string]any, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceField(record map[string]any, key string) []string {
	switch v := record[key].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

// intField reads an integer field, accepting JSON's float64 decoding.
func intField(record map[string]any, key string) int {
	switch v := record[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// RankingInput assembles the engine input for a candidate against the
// viewer's context snapshot. The maps are shared read-only views.
func RankingInput(userCtx *profile.UserContext, c Candidate) ranking.Input {
	return ranking.Input{
		Connected:      userCtx.IsConnection(c.AuthorID),
		Hashtags:       c.Hashtags,
		Interests:      userCtx.Interests,
		Liked:          userCtx.HasLiked(c.ID),
		Commented:      userCtx.HasCommented(c.ID),
		ContentType:    string(c.ContentType),
		TypePreference: userCtx.TypePreference,
		Trending:       userCtx.TrendingSet(),
		AuthorType:     string(c.AuthorType),
		CreatedAt:      c.CreatedAt,
		Vibes:          c.Vibes,
		Comments:       c.Comments,
		Shares:         c.Shares,
	}
}
