package resolver

import "context"

// StaticUsers is a map-based UserResolver for testing and simple deployments.
// Safe for concurrent use (read-only after creation).
type StaticUsers struct {
	users map[string]*UserProfile
}

// NewStaticUsers creates a StaticUsers resolver from a map of user ID to
// profile. The map is copied to prevent external mutation.
func NewStaticUsers(users map[string]*UserProfile) *StaticUsers {
	m := make(map[string]*UserProfile, len(users))
	for k, v := range users {
		m[k] = v
	}
	return &StaticUsers{users: m}
}

// Resolve returns the profile for a single user ID, or nil if unknown.
func (s *StaticUsers) Resolve(_ context.Context, userID string) (*UserProfile, error) {
	return s.users[userID], nil
}

// ResolveBatch returns profiles keyed by user ID. Unknown IDs are absent.
func (s *StaticUsers) ResolveBatch(_ context.Context, userIDs []string) (map[string]*UserProfile, error) {
	result := make(map[string]*UserProfile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.users[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

// StaticSwapRequests is a map-based SwapRequestResolver for testing and
// simple deployments. Safe for concurrent use (read-only after creation).
type StaticSwapRequests struct {
	swaps map[string]*SwapRequestSummary
}

// NewStaticSwapRequests creates a StaticSwapRequests resolver from a map of
// swap-request ID to summary. The map is copied to prevent external mutation.
func NewStaticSwapRequests(swaps map[string]*SwapRequestSummary) *StaticSwapRequests {
	m := make(map[string]*SwapRequestSummary, len(swaps))
	for k, v := range swaps {
		m[k] = v
	}
	return &StaticSwapRequests{swaps: m}
}

// Resolve returns the summary for a single swap-request ID, or nil if unknown.
func (s *StaticSwapRequests) Resolve(_ context.Context, swapRequestID string) (*SwapRequestSummary, error) {
	return s.swaps[swapRequestID], nil
}

// ResolveBatch returns summaries keyed by swap-request ID. Unknown IDs are
// absent.
func (s *StaticSwapRequests) ResolveBatch(_ context.Context, swapRequestIDs []string) (map[string]*SwapRequestSummary, error) {
	result := make(map[string]*SwapRequestSummary, len(swapRequestIDs))
	for _, id := range swapRequestIDs {
		if sum, ok := s.swaps[id]; ok {
			result[id] = sum
		}
	}
	return result, nil
}
