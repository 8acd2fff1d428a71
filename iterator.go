package messaging

import (
	"context"
	"errors"

	"github.com/skillswap/messaging/store"
)

// ErrIteratorOutOfBounds is returned when Message() is called without a
// successful Next().
var ErrIteratorOutOfBounds = errors.New("messaging: iterator out of bounds - call Next() first")

// DefaultStreamBatchSize is the per-batch fetch size for streaming.
const DefaultStreamBatchSize = 100

// StreamOptions configures streaming behavior.
type StreamOptions struct {
	// BatchSize is the number of messages fetched per batch. Larger
	// batches reduce round-trips but use more memory. Default: 100.
	BatchSize int
}

// MessageIterator provides pull-based streaming access to messages for
// memory-efficient processing of large result sets. Use Next to
// advance and Message to get the current message.
//
// The iterator holds no resources requiring cleanup; simply stop
// calling Next when done. It is not safe for concurrent use.
//
//	iter, _ := svc.StreamInbox(ctx, userID, messaging.InboxOptions{})
//	for {
//	    ok, err := iter.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    msg, _ := iter.Message()
//	    // process message
//	}
type MessageIterator struct {
	service   *service
	fetch     func(ctx context.Context, limit, skip int) ([]Message, error)
	batchSize int
	skip      int
	batch     []Message
	batchIdx  int
	done      bool
	fetched   bool
}

// Next advances to the next message. It returns (true, nil) when a
// message is available, (false, nil) when iteration is done, and
// (false, err) when a fetch failed.
func (it *MessageIterator) Next(ctx context.Context) (bool, error) {
	if it.done {
		return false, nil
	}

	if err := it.service.checkConnected(); err != nil {
		it.done = true
		return false, err
	}

	if it.batchIdx >= len(it.batch) {
		if it.fetched && len(it.batch) < it.batchSize {
			it.done = true
			return false, nil
		}

		batch, err := it.fetch(ctx, it.batchSize, it.skip)
		if err != nil {
			it.done = true
			return false, err
		}

		it.batch = batch
		it.batchIdx = 0
		it.fetched = true
		it.skip += len(batch)

		if len(it.batch) == 0 {
			it.done = true
			return false, nil
		}
	}

	it.batchIdx++
	return true, nil
}

// Message returns the current message. It must be called after a Next
// call that returned (true, nil).
func (it *MessageIterator) Message() (Message, error) {
	if it.batchIdx <= 0 || it.batchIdx > len(it.batch) {
		return Message{}, ErrIteratorOutOfBounds
	}
	return it.batch[it.batchIdx-1], nil
}

func (s *service) newIterator(batchSize int, fetch func(ctx context.Context, limit, skip int) ([]Message, error)) *MessageIterator {
	if batchSize <= 0 {
		batchSize = DefaultStreamBatchSize
	}
	return &MessageIterator{
		service:   s,
		fetch:     fetch,
		batchSize: batchSize,
	}
}

// StreamInbox returns an iterator over a recipient's inbox, newest
// first. The InboxOptions paging fields are ignored; set the batch
// size through StreamOptions.
func (s *service) StreamInbox(ctx context.Context, userID string, opts InboxOptions, streamOpts StreamOptions) (*MessageIterator, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if !isValidUserID(userID) {
		return nil, ErrInvalidUserID
	}

	filters := []store.Filter{store.RecipientIs(userID)}
	if opts.UnreadOnly {
		filters = append(filters, store.IsUnread())
	}
	if opts.Type != "" {
		if !opts.Type.Valid() {
			verr := &ValidationError{}
			verr.add("type", "unknown message type")
			return nil, verr
		}
		filters = append(filters, store.TypeIs(string(opts.Type)))
	}

	return s.newIterator(streamOpts.BatchSize, func(ctx context.Context, limit, skip int) ([]Message, error) {
		return s.find(ctx, filters, store.ListOptions{
			Limit:     limit,
			Offset:    skip,
			SortBy:    "created_at",
			SortOrder: store.SortDesc,
		})
	}), nil
}

// StreamConversation returns an iterator over the messages exchanged
// between two users in either direction, newest first.
func (s *service) StreamConversation(ctx context.Context, userA, userB string, streamOpts StreamOptions) (*MessageIterator, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if !isValidUserID(userA) || !isValidUserID(userB) {
		return nil, ErrInvalidUserID
	}

	return s.newIterator(streamOpts.BatchSize, func(ctx context.Context, limit, skip int) ([]Message, error) {
		opCtx, cancel := s.opCtx(ctx)
		defer cancel()
		recs, err := s.store.FindConversation(opCtx, userA, userB, store.ListOptions{
			Limit:     limit,
			Offset:    skip,
			SortBy:    "created_at",
			SortOrder: store.SortDesc,
		})
		if err != nil {
			return nil, translateStoreError(err)
		}
		return s.snapshots(ctx, recs), nil
	}), nil
}
