package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/messaging/store"
)

// Create persists a new message. The input is cloned; the caller's struct is
// never retained or mutated.
func (s *Store) Create(ctx context.Context, msg *store.Message) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, store.ErrInvalidID
	}

	m := msg.Clone()
	if m.ID == "" {
		m.ID = uuid.New().String()
	} else if _, exists := s.messages.Load(m.ID); exists {
		return nil, store.ErrDuplicateEntry
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	s.messages.Store(m.ID, m)
	return m.Clone(), nil
}
