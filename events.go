package messaging

import (
	"context"
	"fmt"
	"time"

	event "github.com/rbaliyan/event/v3"
)

// Event name suffixes. The full name on the bus is prefixed with the
// service's bus name.
const (
	EventNameMessageSent     = "message.sent"
	EventNameMessageRead     = "message.read"
	EventNameMessageArchived = "message.archived"
	EventNameInboxRead       = "inbox.read"
)

// MessageSentEvent is published after a message is persisted.
type MessageSentEvent struct {
	MessageID   string      `json:"message_id"`
	SenderID    string      `json:"sender_id,omitempty"`
	RecipientID string      `json:"recipient_id"`
	Type        MessageType `json:"type"`
	Priority    Priority    `json:"priority"`
	SentAt      time.Time   `json:"sent_at"`
}

// MessageReadEvent is published on the first successful read-marking of
// a message. Repeated MarkAsRead calls do not republish.
type MessageReadEvent struct {
	MessageID   string    `json:"message_id"`
	RecipientID string    `json:"recipient_id"`
	ReadAt      time.Time `json:"read_at"`
}

// MessageArchivedEvent is published on every archive call, including
// re-archives of an already archived message.
type MessageArchivedEvent struct {
	MessageID   string    `json:"message_id"`
	RecipientID string    `json:"recipient_id"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// InboxReadEvent is published after a bulk mark-all-read, with the
// number of messages that actually changed state.
type InboxReadEvent struct {
	RecipientID string    `json:"recipient_id"`
	Count       int64     `json:"count"`
	ReadAt      time.Time `json:"read_at"`
}

// ServiceEvents provides access to per-service event instances. Each
// service binds its own events to its own bus, so two services in one
// process never cross streams.
//
// Subscribe to events:
//
//	svc.Events().MessageSent.Subscribe(ctx, handler)
//	svc.Events().MessageRead.Subscribe(ctx, handler)
type ServiceEvents struct {
	// MessageSent is published when a message is created.
	MessageSent event.Event[MessageSentEvent]

	// MessageRead is published the first time a message is marked read.
	MessageRead event.Event[MessageReadEvent]

	// MessageArchived is published every time a message is archived.
	MessageArchived event.Event[MessageArchivedEvent]

	// InboxRead is published after a bulk mark-all-read.
	InboxRead event.Event[InboxReadEvent]
}

// newServiceEvents creates per-service event instances with a unique
// name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageSent:     event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		MessageRead:     event.New[MessageReadEvent](namePrefix + "." + EventNameMessageRead),
		MessageArchived: event.New[MessageArchivedEvent](namePrefix + "." + EventNameMessageArchived),
		InboxRead:       event.New[InboxReadEvent](namePrefix + "." + EventNameInboxRead),
	}
}

// registerServiceEvents binds the per-service events to the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageRead); err != nil {
		return fmt.Errorf("register MessageRead: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageArchived); err != nil {
		return fmt.Errorf("register MessageArchived: %w", err)
	}
	if err := event.Register(ctx, bus, events.InboxRead); err != nil {
		return fmt.Errorf("register InboxRead: %w", err)
	}
	return nil
}
