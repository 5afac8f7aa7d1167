package profile

import (
	"context"
	"sync"
)

// likeRecord tracks a like along with the content's type so the preference
// histogram can be derived from history.
type likeRecord struct {
	contentID   string
	contentType string
}

// MemStore is an in-memory ContentStore for tests and offline evaluation.
// Thread-safe via RWMutex.
type MemStore struct {
	mu                sync.RWMutex
	edges             map[string]map[string]struct{} // directed follow edges
	interests         map[string][]string
	likes             map[string][]likeRecord
	comments          map[string][]string
	preference        map[string]map[string]float64 // explicit overrides
	trendingHashtags  []string
	trendingInterests []string
}

// NewMemStore creates an empty in-memory content store.
func NewMemStore() *MemStore {
	return &MemStore{
		edges:      make(map[string]map[string]struct{}),
		interests:  make(map[string][]string),
		likes:      make(map[string][]likeRecord),
		comments:   make(map[string][]string),
		preference: make(map[string]map[string]float64),
	}
}

// AddConnection records an accepted connection: both directed edges.
func (s *MemStore) AddConnection(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addEdge(a, b)
	s.addEdge(b, a)
}

// RequestConnection records a one-sided (pending) edge. Pending edges are
// never returned by GetAcceptedConnections.
func (s *MemStore) RequestConnection(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addEdge(from, to)
}

func (s *MemStore) addEdge(from, to string) {
	if s.edges[from] == nil {
		s.edges[from] = make(map[string]struct{})
	}
	s.edges[from][to] = struct{}{}
}

// AddInterest appends a raw interest keyword to the user's profile.
func (s *MemStore) AddInterest(userID, interest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interests[userID] = append(s.interests[userID], interest)
}

// AddLike records a like with the content's type.
func (s *MemStore) AddLike(userID, contentID, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[userID] = append(s.likes[userID], likeRecord{contentID: contentID, contentType: contentType})
}

// AddComment records a comment on a content item.
func (s *MemStore) AddComment(userID, contentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[userID] = append(s.comments[userID], contentID)
}

// SetTypePreference sets an explicit preference histogram, bypassing the
// history-derived one.
func (s *MemStore) SetTypePreference(userID string, preference map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]float64, len(preference))
	for k, v := range preference {
		copied[k] = v
	}
	s.preference[userID] = copied
}

// SetTrendingHashtags replaces the trending hashtag aggregate.
func (s *MemStore) SetTrendingHashtags(hashtags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trendingHashtags = append([]string(nil), hashtags...)
}

// SetTrendingInterests replaces the trending interest aggregate.
func (s *MemStore) SetTrendingInterests(interests []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trendingInterests = append([]string(nil), interests...)
}

// GetAcceptedConnections returns users with edges in both directions,
// excluding self.
func (s *MemStore) GetAcceptedConnections(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accepted []string
	for other := range s.edges[userID] {
		if other == userID {
			continue
		}
		if _, mutual := s.edges[other][userID]; mutual {
			accepted = append(accepted, other)
		}
	}
	return accepted, nil
}

// GetInterests returns the user's raw interest keywords.
func (s *MemStore) GetInterests(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.interests[userID]...), nil
}

// GetInteractionHistory returns liked and commented content ids.
func (s *MemStore) GetInteractionHistory(_ context.Context, userID string) (InteractionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := InteractionHistory{
		Commented: append([]string(nil), s.comments[userID]...),
	}
	for _, like := range s.likes[userID] {
		history.Liked = append(history.Liked, like.contentID)
	}
	return history, nil
}

// GetContentTypePreference returns the explicit preference if set,
// otherwise a histogram of liked content types. An empty map means no
// recorded engagements.
func (s *MemStore) GetContentTypePreference(_ context.Context, userID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if explicit, ok := s.preference[userID]; ok {
		copied := make(map[string]float64, len(explicit))
		for k, v := range explicit {
			copied[k] = v
		}
		return copied, nil
	}

	histogram := make(map[string]float64)
	for _, like := range s.likes[userID] {
		if like.contentType != "" {
			histogram[like.contentType]++
		}
	}
	return histogram, nil
}

// GetTrendingHashtags returns the fixture trending hashtags.
func (s *MemStore) GetTrendingHashtags(_ context.Context, _, _ int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.trendingHashtags...), nil
}

// GetTrendingInterests returns the fixture trending interests.
func (s *MemStore) GetTrendingInterests(_ context.Context, _, _ int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.trendingInterests...), nil
}
