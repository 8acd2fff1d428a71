// Package messaging provides the member-to-member messaging layer of a
// skill exchange platform.
//
// It supports direct messages between members, platform-generated
// system notifications, read and archive state tracking, inbox and
// conversation queries, and unread counts. All functionality is
// exposed through the Service interface, with pluggable storage
// backends (MongoDB, PostgreSQL, in-memory).
//
// # Basic Usage
//
//	// Create in-memory store for testing
//	st := memory.New()
//
//	// Create messaging service
//	svc, err := messaging.NewService(
//	    messaging.WithStore(st),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect initializes indexes/schema
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Send a message
//	msg, err := svc.Create(ctx, messaging.Draft{
//	    SenderID:    "alice",
//	    RecipientID: "bob",
//	    Subject:     "Guitar for Spanish?",
//	    Content:     "I saw your listing and I teach guitar...",
//	})
//
//	// Read the inbox
//	page, err := svc.Inbox(ctx, "bob", messaging.InboxOptions{UnreadOnly: true})
//
// # Operations
//
//   - Create / CreateSystemMessage: persist messages
//   - Get: retrieve a message by ID
//   - Inbox / SentMessages / Conversation: paged listings
//   - MarkAsRead / Archive / MarkAllRead: state changes
//   - UnreadCount / Stats: cached counters
//   - StreamInbox / StreamConversation: iterator-based streaming
//   - PurgeArchived: retention maintenance
//
// # Storage Backends
//
// The store package provides implementations for:
//   - MongoDB (store/mongo) - accepts *mongo.Client
//   - PostgreSQL (store/postgres) - accepts *sqlx.DB or *sql.DB
//   - In-memory (store/memory) - for testing
//
// # Projections
//
// Messages reference users and swap requests by ID only. Configure
// resolvers to decorate query results with display data:
//
//	svc, err := messaging.NewService(
//	    messaging.WithStore(st),
//	    messaging.WithUserResolver(users),
//	    messaging.WithSwapRequestResolver(swaps),
//	)
//
// Dangling references resolve to nil projections, never errors.
//
// # Events
//
// The service publishes typed events for message lifecycle
// notifications using the github.com/rbaliyan/event/v3 library. To
// deliver events across processes, pass WithRedisEvents or
// WithEventTransport when creating the service; otherwise events stay
// in-process.
//
// Events are registered during Connect(). Access per-service events
// via the Events() method:
//
//	events := svc.Events()
//	events.MessageSent.Subscribe(ctx, handler)
//	events.MessageRead.Subscribe(ctx, handler)
//
// Available events:
//   - MessageSent - when a message is created
//   - MessageRead - the first time a message is marked read
//   - MessageArchived - every time a message is archived
//   - InboxRead - after a bulk mark-all-read
package messaging
