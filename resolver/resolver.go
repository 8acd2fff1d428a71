// Package resolver provides reference resolution for message queries.
//
// Messages store sender, recipient, and swap-request references as opaque
// IDs. Resolvers map those IDs to display projections when queries build
// snapshots. References are weak: a missing entry resolves to nil rather
// than an error, so deleted users and swap requests never break listings.
package resolver

import "context"

// UserProfile is the projection of a user attached to message snapshots.
type UserProfile struct {
	// Name is the display name of the user.
	Name string
	// Avatar is the URL of the user's avatar image.
	Avatar string
	// Role is the user's platform role (e.g. "user", "admin").
	Role string
}

// SwapRequestSummary is the projection of a swap request attached to
// message snapshots.
type SwapRequestSummary struct {
	SkillOffered string
	SkillWanted  string
	Status       string
}

// UserResolver maps user IDs to profile projections.
// Implementations must be safe for concurrent use.
//
// Resolve returns (nil, nil) for unknown IDs: a dangling reference is data,
// not an error. Errors are reserved for transport failures.
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (*UserProfile, error)

	// ResolveBatch returns profiles keyed by user ID. Unknown IDs are
	// absent from the result map.
	ResolveBatch(ctx context.Context, userIDs []string) (map[string]*UserProfile, error)
}

// SwapRequestResolver maps swap-request IDs to summary projections.
// Same nil-for-unknown contract as UserResolver.
type SwapRequestResolver interface {
	Resolve(ctx context.Context, swapRequestID string) (*SwapRequestSummary, error)

	ResolveBatch(ctx context.Context, swapRequestIDs []string) (map[string]*SwapRequestSummary, error)
}
