package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbaliyan/event/v3/transport/channel"
	"github.com/redis/go-redis/v9"

	"github.com/skillswap/messaging/store"
)

func TestEventsWithChannelTransport(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, WithEventTransport(channel.New()))
	defer svc.Close(ctx)

	if svc.Events() == nil {
		t.Fatal("expected events after connect")
	}

	// Every mutating operation publishes without failing the call.
	msg := mustCreate(t, svc, Draft{SenderID: "alice", RecipientID: "bob", Content: "hello"})
	if _, err := svc.MarkAsRead(ctx, msg.ID); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if _, err := svc.Archive(ctx, msg.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := svc.MarkAllRead(ctx, "bob"); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
}

func TestEventsWithRedisTransport(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := setupTestService(t, WithRedisEvents(client))
	defer svc.Close(ctx)

	msg := mustCreate(t, svc, Draft{SenderID: "alice", RecipientID: "bob", Content: "over redis"})
	if _, err := svc.MarkAsRead(ctx, msg.ID); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
}

func TestEventPublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	failures := make(chan string, 16)
	svc := setupTestService(t,
		WithRedisEvents(client),
		WithEventPublishFailureCallback(func(eventName string, err error) {
			select {
			case failures <- eventName:
			default:
			}
		}),
	)
	defer svc.Close(ctx)

	// Kill the transport out from under the service.
	mr.Close()

	msg, err := svc.Create(ctx, Draft{SenderID: "alice", RecipientID: "bob", Content: "still delivered"})
	if err != nil {
		t.Fatalf("Create should survive a dead event transport: %v", err)
	}
	if _, err := svc.Get(ctx, msg.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case name := <-failures:
		if name == "" {
			t.Error("expected a named event in the failure callback")
		}
	case <-time.After(2 * time.Second):
		t.Error("expected the publish failure callback to fire")
	}
}

// seedRemoteWrite inserts a record straight into the store, the way a
// second service instance sharing the same backend would.
func seedRemoteWrite(t *testing.T, s *service, recipient string) {
	t.Helper()
	_, err := s.store.Create(context.Background(), &store.Message{
		SenderID:    "remote",
		RecipientID: recipient,
		Subject:     "from another instance",
		Content:     "hello",
		Type:        string(TypeDirect),
		Priority:    string(PriorityMedium),
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
}

func TestStatsCacheEventCoherence(t *testing.T) {
	ctx := context.Background()

	t.Run("handlers drop cached entries", func(t *testing.T) {
		svc := setupTestService(t, WithStatsTTL(time.Hour))
		defer svc.Close(ctx)
		s := svc.(*service)

		mustCreate(t, svc, Draft{SenderID: "alice", RecipientID: "bob", Content: "first"})
		if n, err := svc.UnreadCount(ctx, "bob"); err != nil || n != 1 {
			t.Fatalf("UnreadCount = %d, %v; want 1", n, err)
		}

		// The noop transport never delivers, so the cached count
		// survives a write this service did not see.
		seedRemoteWrite(t, s, "bob")
		if n, err := svc.UnreadCount(ctx, "bob"); err != nil || n != 1 {
			t.Fatalf("UnreadCount = %d, %v; want cached 1", n, err)
		}

		if err := s.onMessageSent(ctx, s.events.MessageSent, MessageSentEvent{
			MessageID:   "remote-message",
			RecipientID: "bob",
		}); err != nil {
			t.Fatalf("onMessageSent: %v", err)
		}
		if n, err := svc.UnreadCount(ctx, "bob"); err != nil || n != 2 {
			t.Fatalf("UnreadCount = %d, %v; want refreshed 2", n, err)
		}

		if err := s.onInboxRead(ctx, s.events.InboxRead, InboxReadEvent{
			RecipientID: "bob",
			Count:       2,
		}); err != nil {
			t.Fatalf("onInboxRead: %v", err)
		}
		if _, ok := s.stats.get("bob"); ok {
			t.Error("expected bob's entry to be invalidated")
		}
	})

	t.Run("delivered events reach the subscription", func(t *testing.T) {
		svc := setupTestService(t, WithStatsTTL(time.Hour), WithEventTransport(channel.New()))
		defer svc.Close(ctx)
		s := svc.(*service)

		seedRemoteWrite(t, s, "carol")
		if n, err := svc.UnreadCount(ctx, "carol"); err != nil || n != 1 {
			t.Fatalf("UnreadCount = %d, %v; want 1", n, err)
		}
		seedRemoteWrite(t, s, "carol")

		if err := s.events.MessageSent.Publish(ctx, MessageSentEvent{
			MessageID:   "remote-message",
			RecipientID: "carol",
			SentAt:      time.Now(),
		}); err != nil {
			t.Fatalf("Publish: %v", err)
		}

		deadline := time.Now().Add(2 * time.Second)
		for {
			n, err := svc.UnreadCount(ctx, "carol")
			if err != nil {
				t.Fatalf("UnreadCount: %v", err)
			}
			if n == 2 {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("UnreadCount = %d after publish; want 2", n)
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}
