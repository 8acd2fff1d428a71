package messaging

import (
	"context"
	"sync"
	"time"

	event "github.com/rbaliyan/event/v3"

	"github.com/skillswap/messaging/store"
)

// statsCache keeps per-recipient message counts fresh for a short TTL.
// Writes through this service invalidate the owning entry directly;
// writes made by other instances reach it through the event
// subscriptions below when a shared transport is configured.
type statsCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]*statsEntry
}

type statsEntry struct {
	stats   *store.MessageStats
	fetched time.Time
}

func newStatsCache(ttl time.Duration) *statsCache {
	return &statsCache{
		ttl:     ttl,
		entries: make(map[string]*statsEntry),
	}
}

func (c *statsCache) get(userID string) (*store.MessageStats, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || time.Since(entry.fetched) > c.ttl {
		return nil, false
	}
	return entry.stats.Clone(), true
}

func (c *statsCache) put(userID string, stats *store.MessageStats) {
	c.mu.Lock()
	c.entries[userID] = &statsEntry{stats: stats.Clone(), fetched: time.Now()}
	c.mu.Unlock()
}

func (c *statsCache) invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

func (c *statsCache) invalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*statsEntry)
	c.mu.Unlock()
}

// onMessageSent drops the recipient's cached counts when any instance
// on the bus delivers a message to them.
func (s *service) onMessageSent(_ context.Context, _ event.Event[MessageSentEvent], data MessageSentEvent) error {
	s.stats.invalidate(data.RecipientID)
	return nil
}

// onMessageRead drops the recipient's cached counts on the first read
// of one of their messages.
func (s *service) onMessageRead(_ context.Context, _ event.Event[MessageReadEvent], data MessageReadEvent) error {
	s.stats.invalidate(data.RecipientID)
	return nil
}

// onMessageArchived drops the recipient's cached counts when one of
// their messages is archived.
func (s *service) onMessageArchived(_ context.Context, _ event.Event[MessageArchivedEvent], data MessageArchivedEvent) error {
	s.stats.invalidate(data.RecipientID)
	return nil
}

// onInboxRead drops the recipient's cached counts after a bulk
// mark-all-read.
func (s *service) onInboxRead(_ context.Context, _ event.Event[InboxReadEvent], data InboxReadEvent) error {
	s.stats.invalidate(data.RecipientID)
	return nil
}
