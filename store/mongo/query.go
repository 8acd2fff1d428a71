package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skillswap/messaging/store"
)

// Get retrieves a message by ID.
func (s *Store) Get(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	var doc messageDoc
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}

	return docToMessage(&doc), nil
}

// Find retrieves messages matching the filters.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	return s.find(ctx, buildFilter(filters), opts)
}

// FindWithCount retrieves matching messages and the total match count.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) ([]*store.Message, int64, error) {
	if err := s.checkConnected(); err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := buildFilter(filters)
	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	msgs, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// Count counts messages matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	count, err := s.collection.CountDocuments(ctx, buildFilter(filters))
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// FindConversation retrieves messages exchanged between two users in either
// direction.
func (s *Store) FindConversation(ctx context.Context, userA, userB string, opts store.ListOptions) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{
		"$or": []bson.M{
			{"sender_id": userA, "recipient_id": userB},
			{"sender_id": userB, "recipient_id": userA},
		},
	}
	return s.find(ctx, filter, opts)
}

// Stats returns aggregate counts for messages addressed to recipientID.
func (s *Store) Stats(ctx context.Context, recipientID string) (*store.MessageStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	base := bson.M{"recipient_id": recipientID}
	total, err := s.collection.CountDocuments(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}

	unread, err := s.collection.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "is_read": false})
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}

	archived, err := s.collection.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "is_archived": true})
	if err != nil {
		return nil, fmt.Errorf("count archived: %w", err)
	}

	return &store.MessageStats{Total: total, Unread: unread, Archived: archived}, nil
}

// find runs the query with sort and pagination applied. The _id component of
// the sort is always ascending so pages are stable for equal sort values.
func (s *Store) find(ctx context.Context, filter bson.M, opts store.ListOptions) ([]*store.Message, error) {
	sortKey := "created_at"
	sortDir := -1 // DESC
	if opts.SortBy != "" {
		if key, ok := store.MessageFieldKey(opts.SortBy); ok {
			sortKey = mapKey(key)
		}
	}
	if opts.SortOrder == store.SortAsc {
		sortDir = 1
	}

	findOpts := mongoopts.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	findOpts.SetSort(bson.D{
		bson.E{Key: sortKey, Value: sortDir},
		bson.E{Key: "_id", Value: 1},
	})

	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]*store.Message, len(docs))
	for i := range docs {
		messages[i] = docToMessage(&docs[i])
	}
	return messages, nil
}

// mapKey translates shared filter keys to MongoDB field names.
func mapKey(key string) string {
	if key == "id" {
		return "_id"
	}
	return key
}

// buildFilter converts a slice of store.Filter to a MongoDB filter document.
func buildFilter(filters []store.Filter) bson.M {
	result := bson.M{}
	for _, f := range filters {
		key := mapKey(f.Key())
		value := f.Value()

		switch f.Operator() {
		case "eq":
			result[key] = value
		case "ne":
			result[key] = bson.M{"$ne": value}
		case "gt":
			result[key] = bson.M{"$gt": value}
		case "gte":
			result[key] = bson.M{"$gte": value}
		case "lt":
			result[key] = bson.M{"$lt": value}
		case "lte":
			result[key] = bson.M{"$lte": value}
		case "in":
			result[key] = bson.M{"$in": value}
		}
	}
	return result
}
