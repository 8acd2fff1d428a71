// Package store provides interfaces and types for message storage.
// Implementations are in store/mongo, store/memory, and store/postgres subpackages.
//
// # Architectural Principle: No Distributed Locks
//
// This package is designed to avoid distributed locks entirely. All
// concurrency concerns are handled through database-native atomicity:
//
//  1. Atomic Conditional Updates: State transitions such as marking a message
//     read use a single conditional update (MongoDB findOneAndUpdate,
//     PostgreSQL UPDATE ... WHERE ... RETURNING). The database matches and
//     mutates in one step, so concurrent callers cannot double-apply a
//     transition.
//
//  2. Single-Record Writes: Every operation touches at most one record (or
//     one bulk predicate). There are no multi-record invariants to coordinate.
//
//  3. Concurrent Maintenance: Bulk operations (MarkAllRead, PurgeArchived)
//     are predicate-based deletes/updates. Multiple service instances can run
//     them simultaneously; the database applies each mutation exactly once.
//
// Example - Idempotent Read Marking:
//
//	// WRONG: read-check-write (racy without a lock)
//	msg := store.Get(id)
//	if !msg.IsRead { msg.IsRead = true; store.Save(msg) }
//
//	// CORRECT: atomic conditional update
//	msg, changed, err := store.MarkRead(ctx, id, time.Now())
//	// changed=false means it was already read; no write occurred
//
// This design keeps the library free of external lock services and makes
// every operation safe to call from multiple processes.
package store

import (
	"context"
	"time"
)

// Store is the storage interface for messages.
//
// All operations must be safe for concurrent use. Implementations must use
// database-level atomicity rather than external locking. Operations are not
// retried internally: a failed operation surfaces its error and leaves no
// partial state.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	MessageReader
	MessageMutator
	MessageCreator
}

// MessageReader provides read operations for messages.
type MessageReader interface {
	// Get retrieves a message by ID.
	// Returns ErrNotFound if the message doesn't exist.
	Get(ctx context.Context, id string) (*Message, error)

	// Find retrieves messages matching all filters, ordered per opts with
	// ID ascending as tie-break.
	Find(ctx context.Context, filters []Filter, opts ListOptions) ([]*Message, error)

	// Count returns the count of messages matching all filters.
	Count(ctx context.Context, filters []Filter) (int64, error)

	// FindConversation retrieves messages exchanged between two users in
	// either direction. The pair is unordered: swapping userA and userB
	// yields the same result set.
	FindConversation(ctx context.Context, userA, userB string, opts ListOptions) ([]*Message, error)
}

// MessageMutator provides state transitions for messages.
// Mutations are specific operations, not general setters.
type MessageMutator interface {
	// MarkRead atomically transitions a message to read, setting ReadAt to
	// at. The match-and-set is a single database operation: when the message
	// is already read, no write occurs, changed is false, and the unchanged
	// record is returned. Returns ErrNotFound for unknown ids.
	MarkRead(ctx context.Context, id string, at time.Time) (msg *Message, changed bool, err error)

	// Archive marks a message archived, stamping ArchivedAt to at. The
	// operation is unconditional: archiving an already-archived message
	// refreshes its ArchivedAt.
	Archive(ctx context.Context, id string, at time.Time) (*Message, error)
}

// MessageCreator provides message creation.
type MessageCreator interface {
	// Create persists a new message atomically: the record is fully created
	// or not at all. The store assigns ID, CreatedAt, and UpdatedAt.
	// The input is not mutated; the stored record is returned.
	Create(ctx context.Context, msg *Message) (*Message, error)
}

// FindWithCounter is an optional interface that Store implementations can
// implement to return messages and total count in a single query.
// When implemented, list operations avoid a separate Count round-trip.
type FindWithCounter interface {
	FindWithCount(ctx context.Context, filters []Filter, opts ListOptions) ([]*Message, int64, error)
}

// BulkReadMarker is an optional interface for efficient bulk read marking.
// When implemented, MarkAllRead uses a single database operation instead of
// N individual MarkRead calls. All three built-in backends implement this.
type BulkReadMarker interface {
	// MarkAllRead marks every unread message addressed to recipientID as
	// read with ReadAt set to at. Returns the number of messages that
	// transitioned.
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
}

// ArchivePurger is an optional interface for background maintenance.
// Safe to call concurrently from multiple instances: the database applies
// each delete exactly once.
type ArchivePurger interface {
	// PurgeArchived permanently deletes archived messages whose ArchivedAt
	// is before cutoff. Returns the number of messages deleted.
	PurgeArchived(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatsReader is an optional interface for aggregate per-recipient counts.
type StatsReader interface {
	// Stats returns aggregate counts for messages addressed to recipientID.
	Stats(ctx context.Context, recipientID string) (*MessageStats, error)
}
