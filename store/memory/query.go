package memory

import (
	"context"

	"github.com/skillswap/messaging/store"
)

// Get retrieves a message by ID.
func (s *Store) Get(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	v, ok := s.messages.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return v.(*store.Message).Clone(), nil
}

// Find retrieves messages matching the filters.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) ([]*store.Message, error) {
	msgs, _, err := s.findAll(filters, opts)
	return msgs, err
}

// FindWithCount retrieves matching messages and the total match count in one
// pass.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) ([]*store.Message, int64, error) {
	return s.findAll(filters, opts)
}

// Count returns the count of messages matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	var count int64
	s.messages.Range(func(_, v any) bool {
		if matchesFilters(v.(*store.Message), filters) {
			count++
		}
		return true
	})
	return count, nil
}

// FindConversation retrieves messages exchanged between two users in either
// direction.
func (s *Store) FindConversation(ctx context.Context, userA, userB string, opts store.ListOptions) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	var all []*store.Message
	s.messages.Range(func(_, v any) bool {
		m := v.(*store.Message)
		if (m.SenderID == userA && m.RecipientID == userB) ||
			(m.SenderID == userB && m.RecipientID == userA) {
			all = append(all, m)
		}
		return true
	})

	sortMessages(all, opts.SortBy, opts.SortOrder)
	return paginate(all, opts), nil
}

// Stats returns aggregate counts for messages addressed to recipientID.
func (s *Store) Stats(ctx context.Context, recipientID string) (*store.MessageStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	stats := &store.MessageStats{}
	s.messages.Range(func(_, v any) bool {
		m := v.(*store.Message)
		if m.RecipientID != recipientID {
			return true
		}
		stats.Total++
		if !m.IsRead {
			stats.Unread++
		}
		if m.IsArchived {
			stats.Archived++
		}
		return true
	})
	return stats, nil
}

// findAll collects, sorts, and paginates matching messages.
func (s *Store) findAll(filters []store.Filter, opts store.ListOptions) ([]*store.Message, int64, error) {
	if err := s.checkConnected(); err != nil {
		return nil, 0, err
	}

	var all []*store.Message
	s.messages.Range(func(_, v any) bool {
		m := v.(*store.Message)
		if matchesFilters(m, filters) {
			all = append(all, m)
		}
		return true
	})

	sortMessages(all, opts.SortBy, opts.SortOrder)
	return paginate(all, opts), int64(len(all)), nil
}

// paginate applies offset/limit and clones the window.
func paginate(all []*store.Message, opts store.ListOptions) []*store.Message {
	start := opts.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + opts.Limit
	if opts.Limit <= 0 {
		end = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	window := all[start:end]
	result := make([]*store.Message, len(window))
	for i, m := range window {
		result[i] = m.Clone()
	}
	return result
}
