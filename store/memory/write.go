package memory

import (
	"context"
	"time"

	"github.com/skillswap/messaging/store"
)

// MarkRead transitions a message to read. The per-message lock makes the
// check-and-set atomic: concurrent callers observe exactly one transition.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (*store.Message, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}
	if id == "" {
		return nil, false, store.ErrInvalidID
	}

	lock := s.getMsgLock(id)
	lock.Lock()
	defer lock.Unlock()

	v, ok := s.messages.Load(id)
	if !ok {
		return nil, false, store.ErrNotFound
	}

	m := v.(*store.Message)
	if m.IsRead {
		return m.Clone(), false, nil
	}

	updated := m.Clone()
	readAt := at.UTC()
	updated.IsRead = true
	updated.ReadAt = &readAt
	updated.UpdatedAt = readAt

	s.messages.Store(id, updated)
	return updated.Clone(), true, nil
}

// Archive marks a message archived, re-stamping ArchivedAt on every call.
func (s *Store) Archive(ctx context.Context, id string, at time.Time) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	lock := s.getMsgLock(id)
	lock.Lock()
	defer lock.Unlock()

	v, ok := s.messages.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}

	updated := v.(*store.Message).Clone()
	archivedAt := at.UTC()
	updated.IsArchived = true
	updated.ArchivedAt = &archivedAt
	updated.UpdatedAt = archivedAt

	s.messages.Store(id, updated)
	return updated.Clone(), nil
}

// MarkAllRead marks every unread message addressed to recipientID as read.
func (s *Store) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	var ids []string
	s.messages.Range(func(_, v any) bool {
		m := v.(*store.Message)
		if m.RecipientID == recipientID && !m.IsRead {
			ids = append(ids, m.ID)
		}
		return true
	})

	var count int64
	for _, id := range ids {
		if _, changed, err := s.MarkRead(ctx, id, at); err == nil && changed {
			count++
		}
	}
	return count, nil
}

// PurgeArchived deletes archived messages with ArchivedAt before cutoff.
func (s *Store) PurgeArchived(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	var count int64
	s.messages.Range(func(k, v any) bool {
		m := v.(*store.Message)
		if m.IsArchived && m.ArchivedAt != nil && m.ArchivedAt.Before(cutoff) {
			s.messages.Delete(k)
			s.msgLocks.Delete(k)
			count++
		}
		return true
	})
	return count, nil
}
