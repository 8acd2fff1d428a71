package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	event "github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"golang.org/x/sync/semaphore"

	"github.com/skillswap/messaging/store"
)

// Service is the messaging API for the skill exchange platform. All
// operations require a successful Connect first.
type Service interface {
	// Connect verifies store connectivity and starts the event bus.
	Connect(ctx context.Context) error
	// Close drains in-flight work and releases resources.
	Close(ctx context.Context) error
	// IsConnected reports whether Connect has completed.
	IsConnected() bool
	// Events exposes the typed events published by this instance.
	Events() *ServiceEvents
	// Attachments returns the uploader for the configured attachment
	// store, or nil when none was configured.
	Attachments() *AttachmentUploader

	// Create validates and persists a user-authored message.
	Create(ctx context.Context, draft Draft) (*Message, error)
	// CreateSystemMessage persists a platform-generated message with no
	// sender.
	CreateSystemMessage(ctx context.Context, recipientID, content string, opts ...SystemOption) (*Message, error)

	// Get returns a single message by id with projections resolved.
	Get(ctx context.Context, id string) (*Message, error)
	// Inbox pages a recipient's received messages, newest first.
	Inbox(ctx context.Context, userID string, opts InboxOptions) ([]Message, error)
	// SentMessages pages a sender's outgoing messages, newest first.
	SentMessages(ctx context.Context, userID string, opts PageOptions) ([]Message, error)
	// Conversation pages the messages exchanged between two users in
	// either direction, newest first.
	Conversation(ctx context.Context, userA, userB string, opts PageOptions) ([]Message, error)
	// UnreadCount returns the recipient's unread message count, served
	// from a short-lived cache.
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// Stats returns total, unread and archived counts for a recipient.
	Stats(ctx context.Context, userID string) (*store.MessageStats, error)

	// MarkAsRead stamps a message read. Idempotent: repeat calls return
	// the message unchanged with its original read timestamp.
	MarkAsRead(ctx context.Context, id string) (*Message, error)
	// Archive stamps a message archived, refreshing the timestamp on
	// repeat calls.
	Archive(ctx context.Context, id string) (*Message, error)
	// MarkAllRead marks every unread message for the recipient and
	// returns how many changed state.
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// PurgeArchived deletes archived messages older than the cutoff and
	// returns how many were removed.
	PurgeArchived(ctx context.Context, olderThan time.Duration) (int64, error)

	// StreamInbox iterates a recipient's inbox batch by batch.
	StreamInbox(ctx context.Context, userID string, opts InboxOptions, streamOpts StreamOptions) (*MessageIterator, error)
	// StreamConversation iterates a two-party conversation batch by batch.
	StreamConversation(ctx context.Context, userA, userB string, streamOpts StreamOptions) (*MessageIterator, error)
}

// Service connection states.
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateConnected
)

// busCounter disambiguates bus names when several services share a
// process.
var busCounter int64

type service struct {
	opts      *options
	store     store.Store
	state     int32
	createSem *semaphore.Weighted
	eventBus  *event.Bus
	events    *ServiceEvents
	uploader  *AttachmentUploader
	otel      *otelInstrumentation
	stats     *statsCache
	closeOnce sync.Once
}

var _ Service = (*service)(nil)

// NewService builds a messaging service. WithStore is required; all
// other options have defaults.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)
	if o.store == nil {
		return nil, ErrStoreRequired
	}
	otelInst, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("messaging: init otel: %w", err)
	}
	s := &service{
		opts:      o,
		store:     o.store,
		createSem: semaphore.NewWeighted(o.maxConcurrentCreates),
		otel:      otelInst,
		stats:     newStatsCache(o.statsTTL),
	}
	if o.attachments != nil {
		s.uploader = NewAttachmentUploader(o.attachments)
	}
	return s, nil
}

// IsConnected reports whether the service is ready for use.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Events returns the typed events published by this instance. Nil
// until Connect has run.
func (s *service) Events() *ServiceEvents {
	return s.events
}

// Attachments returns the uploader for the configured attachment store.
func (s *service) Attachments() *AttachmentUploader {
	return s.uploader
}

func (s *service) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}
	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		if errors.Is(err, store.ErrAlreadyConnected) {
			s.opts.logger.Debug("store already connected")
		} else {
			return translateStoreError(err)
		}
	}

	if err := s.initEventBus(ctx); err != nil {
		return fmt.Errorf("messaging: init event bus: %w", err)
	}

	success = true
	s.opts.logger.Info("messaging service connected", "service", s.opts.serviceName)
	return nil
}

// initEventBus creates this service's event bus. Each bus needs a
// unique name, so a counter suffix is appended.
func (s *service) initEventBus(ctx context.Context) error {
	busName := fmt.Sprintf("%s-%d", s.opts.serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error
	switch {
	case s.opts.eventTransport != nil:
		s.opts.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.opts.logger.Info("initializing event bus with redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.opts.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	// Keep the stats cache coherent with writes made by other
	// instances sharing this transport.
	s.events.MessageSent.Subscribe(ctx, s.onMessageSent)
	s.events.MessageRead.Subscribe(ctx, s.onMessageRead)
	s.events.MessageArchived.Subscribe(ctx, s.onMessageArchived)
	s.events.InboxRead.Subscribe(ctx, s.onInboxRead)
	return nil
}

func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		// Already closed or never connected; nothing to release.
		return nil
	}

	var errs []error
	s.closeOnce.Do(func() {
		drainCtx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
		defer cancel()
		// Acquiring the full semaphore weight waits for in-flight
		// creates to finish.
		if err := s.createSem.Acquire(drainCtx, s.opts.maxConcurrentCreates); err != nil {
			errs = append(errs, fmt.Errorf("messaging: drain in-flight creates: %w", err))
		} else {
			s.createSem.Release(s.opts.maxConcurrentCreates)
		}

		if s.eventBus != nil {
			if err := s.eventBus.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("messaging: close event bus: %w", err))
			}
		}
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, translateStoreError(err))
		}
	})

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.opts.logger.Info("messaging service closed", "service", s.opts.serviceName)
	return nil
}

func (s *service) checkConnected() error {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return ErrNotConnected
	}
	return nil
}

// opCtx applies the per-operation store timeout.
func (s *service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.timeout)
}

// publish delivers an event without affecting the calling operation.
// Failures are logged and forwarded to the configured callback.
func publish[T any](ctx context.Context, s *service, name string, ev event.Event[T], payload T) {
	if err := ev.Publish(ctx, payload); err != nil {
		s.opts.logger.Warn("event publish failed", "event", name, "error", err)
		s.opts.safeEventPublishFailure(name, err)
	}
}
