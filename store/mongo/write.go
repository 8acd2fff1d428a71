package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skillswap/messaging/store"
)

// MarkRead transitions a message to read via a single conditional update.
// The filter matches only unread documents, so concurrent callers cannot
// double-apply the transition and ReadAt is stamped exactly once.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (*store.Message, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false, store.ErrInvalidID
	}

	at = at.UTC()
	filter := bson.M{"_id": oid, "is_read": false}
	update := bson.M{
		"$set": bson.M{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		},
	}
	findOpts := mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After)

	var doc messageDoc
	err = s.collection.FindOneAndUpdate(ctx, filter, update, findOpts).Decode(&doc)
	if err == nil {
		return docToMessage(&doc), true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("mark read: %w", err)
	}

	// Unmatched: either already read or missing. Get distinguishes the two.
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return msg, false, nil
}

// Archive marks a message archived. The update is unconditional: repeat calls
// re-stamp ArchivedAt.
func (s *Store) Archive(ctx context.Context, id string, at time.Time) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	at = at.UTC()
	update := bson.M{
		"$set": bson.M{
			"is_archived": true,
			"archived_at": at,
			"updated_at":  at,
		},
	}
	findOpts := mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After)

	var doc messageDoc
	err = s.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, findOpts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("archive message: %w", err)
	}
	return docToMessage(&doc), nil
}

// MarkAllRead marks every unread message addressed to recipientID as read in
// a single UpdateMany.
func (s *Store) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	at = at.UTC()
	filter := bson.M{"recipient_id": recipientID, "is_read": false}
	update := bson.M{
		"$set": bson.M{
			"is_read":    true,
			"read_at":    at,
			"updated_at": at,
		},
	}

	result, err := s.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return result.ModifiedCount, nil
}

// PurgeArchived deletes archived messages with ArchivedAt before cutoff.
// Safe to call concurrently from multiple instances; each document is
// deleted exactly once.
func (s *Store) PurgeArchived(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{
		"is_archived": true,
		"archived_at": bson.M{"$lt": cutoff.UTC()},
	}

	result, err := s.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("purge archived: %w", err)
	}
	return result.DeletedCount, nil
}
