package feed

// Feed shape defaults.
const (
	// DefaultFeedSize is the maximum number of items in a generated feed.
	DefaultFeedSize = 20
	// DefaultAuthorCap bounds how many items one author may hold in the feed.
	DefaultAuthorCap = 2
)

// DiversityFilter bounds per-author repetition in a score-ordered feed.
// Over-cap candidates are dropped outright; re-including them with a score
// penalty is a product decision this filter deliberately does not make.
type DiversityFilter struct {
	AuthorCap int
	Limit     int
}

// NewDiversityFilter creates a filter, applying defaults for non-positive
// values.
func NewDiversityFilter(authorCap, limit int) DiversityFilter {
	if authorCap <= 0 {
		authorCap = DefaultAuthorCap
	}
	if limit <= 0 {
		limit = DefaultFeedSize
	}
	return DiversityFilter{AuthorCap: authorCap, Limit: limit}
}

// Apply walks the score-descending candidates, accepting each while its
// author's running count is below the cap, and stops once the feed is full.
func (f DiversityFilter) Apply(scored []ScoredCandidate) []ScoredCandidate {
	if len(scored) == 0 {
		return scored
	}

	perAuthor := make(map[string]int)
	result := make([]ScoredCandidate, 0, min(f.Limit, len(scored)))

	for _, sc := range scored {
		if perAuthor[sc.Candidate.AuthorID] >= f.AuthorCap {
			continue
		}
		perAuthor[sc.Candidate.AuthorID]++
		result = append(result, sc)
		if len(result) >= f.Limit {
			break
		}
	}

	return result
}

// SimpleDiversity is the fallback pass over raw records: the same author
// cap, but preserving the input's relative order instead of any scoring.
// Records whose author cannot be resolved share one bucket so an
// unattributable flood is still capped.
func SimpleDiversity(raws []any, authorOf func(any) string, authorCap, limit int) []any {
	if authorCap <= 0 {
		authorCap = DefaultAuthorCap
	}
	if limit <= 0 {
		limit = DefaultFeedSize
	}

	perAuthor := make(map[string]int)
	result := make([]any, 0, min(limit, len(raws)))

	for _, raw := range raws {
		author := authorOf(raw)
		if perAuthor[author] >= authorCap {
			continue
		}
		perAuthor[author]++
		result = append(result, raw)
		if len(result) >= limit {
			break
		}
	}

	return result
}
