package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/skillswap/messaging/template"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	t.Run("round trip", func(t *testing.T) {
		msg, err := svc.Create(ctx, Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Subject:     "  Guitar lessons  ",
			Content:     "  Interested in a swap?  ",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if msg.ID == "" {
			t.Error("expected assigned id")
		}
		if msg.Subject != "Guitar lessons" {
			t.Errorf("subject not trimmed: %q", msg.Subject)
		}
		if msg.Content != "Interested in a swap?" {
			t.Errorf("content not trimmed: %q", msg.Content)
		}
		if msg.Type != TypeDirect {
			t.Errorf("expected default type direct, got %q", msg.Type)
		}
		if msg.Priority != PriorityMedium {
			t.Errorf("expected default priority medium, got %q", msg.Priority)
		}
		if msg.IsRead || msg.ReadAt != nil {
			t.Error("new message must be unread")
		}
		if msg.IsArchived || msg.ArchivedAt != nil {
			t.Error("new message must not be archived")
		}
		if msg.CreatedAt.IsZero() || msg.UpdatedAt.IsZero() {
			t.Error("expected store-set timestamps")
		}

		got, err := svc.Get(ctx, msg.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Content != msg.Content {
			t.Errorf("round trip content mismatch: %q", got.Content)
		}
	})

	t.Run("validation enumerates all failing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, Draft{
			Subject:  strings.Repeat("s", 201),
			Content:  "",
			Type:     "carrier-pigeon",
			Priority: "whenever",
		})
		if !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("expected ErrInvalidMessage, got %v", err)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		for _, field := range []string{"recipient", "sender", "content", "subject", "type", "priority"} {
			if verr.Field(field) == "" {
				t.Errorf("expected failure for field %q, fields: %v", field, verr.Fields)
			}
		}
	})

	t.Run("content over limit", func(t *testing.T) {
		_, err := svc.Create(ctx, Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     strings.Repeat("x", 5001),
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}
		if verr.Field("content") == "" {
			t.Errorf("expected content failure, fields: %v", verr.Fields)
		}
		if verr.Field("recipient") != "" {
			t.Errorf("recipient should pass, fields: %v", verr.Fields)
		}
	})

	t.Run("content at limit passes", func(t *testing.T) {
		_, err := svc.Create(ctx, Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     strings.Repeat("x", 5000),
		})
		if err != nil {
			t.Fatalf("expected success at limit, got %v", err)
		}
	})

	t.Run("whitespace content is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "   \t\n  ",
		})
		if !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("expected ErrInvalidMessage, got %v", err)
		}
	})

	t.Run("missing sender on direct message", func(t *testing.T) {
		_, err := svc.Create(ctx, Draft{RecipientID: "bob", Content: "hi"})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}
		if verr.Field("sender") == "" {
			t.Errorf("expected sender failure, fields: %v", verr.Fields)
		}
	})

	t.Run("tags deduplicated", func(t *testing.T) {
		msg, err := svc.Create(ctx, Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "tagged",
			Metadata:    Metadata{Tags: []string{"swap", "swap", "", "guitar"}},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		want := []string{"swap", "guitar"}
		if len(msg.Metadata.Tags) != len(want) {
			t.Fatalf("expected tags %v, got %v", want, msg.Metadata.Tags)
		}
		for i, tag := range want {
			if msg.Metadata.Tags[i] != tag {
				t.Errorf("tag[%d]: expected %q, got %q", i, tag, msg.Metadata.Tags[i])
			}
		}
	})
}

func TestCreateSystemMessage(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	defer svc.Close(ctx)

	t.Run("defaults", func(t *testing.T) {
		msg, err := svc.CreateSystemMessage(ctx, "bob", "Your account was verified.")
		if err != nil {
			t.Fatalf("CreateSystemMessage: %v", err)
		}
		if msg.Type != TypeSystem {
			t.Errorf("expected type system, got %q", msg.Type)
		}
		if msg.SenderID != "" || msg.Sender != nil {
			t.Error("system message must have no sender")
		}
		if msg.Subject != DefaultSystemSubject {
			t.Errorf("expected default subject, got %q", msg.Subject)
		}
		if msg.Priority != PriorityMedium {
			t.Errorf("expected medium priority, got %q", msg.Priority)
		}
		if !msg.Metadata.AutoGenerated {
			t.Error("system message must be marked auto-generated")
		}
	})

	t.Run("options", func(t *testing.T) {
		msg, err := svc.CreateSystemMessage(ctx, "bob", "Swap update",
			WithSystemSubject("Swap Request Update"),
			WithSystemPriority(PriorityHigh),
			WithRelatedSwapRequest("swap-42"),
			WithCategory("swaps"),
		)
		if err != nil {
			t.Fatalf("CreateSystemMessage: %v", err)
		}
		if msg.Subject != "Swap Request Update" {
			t.Errorf("subject: %q", msg.Subject)
		}
		if msg.Priority != PriorityHigh {
			t.Errorf("priority: %q", msg.Priority)
		}
		if msg.RelatedSwapRequestID != "swap-42" {
			t.Errorf("related swap: %q", msg.RelatedSwapRequestID)
		}
		if msg.Metadata.Category != "swaps" {
			t.Errorf("category: %q", msg.Metadata.Category)
		}
	})

	t.Run("template rendering", func(t *testing.T) {
		reg := template.NewRegistry()
		reg.MustRegister("session_booked", "{{.UserName}} booked a session with you.")

		svc2 := setupTestService(t, WithTemplates(reg))
		defer svc2.Close(ctx)

		msg, err := svc2.CreateSystemMessage(ctx, "bob", "fallback",
			WithTemplate("session_booked", map[string]string{"UserName": "Alice"}))
		if err != nil {
			t.Fatalf("CreateSystemMessage: %v", err)
		}
		if msg.Content != "Alice booked a session with you." {
			t.Errorf("rendered content: %q", msg.Content)
		}
		if msg.Metadata.TemplateID != "session_booked" {
			t.Errorf("template id: %q", msg.Metadata.TemplateID)
		}
	})

	t.Run("unknown template keeps content", func(t *testing.T) {
		msg, err := svc.CreateSystemMessage(ctx, "bob", "original content",
			WithTemplate("no_such_template", nil))
		if err != nil {
			t.Fatalf("CreateSystemMessage: %v", err)
		}
		if msg.Content != "original content" {
			t.Errorf("expected untouched content, got %q", msg.Content)
		}
	})
}

// recordingHook captures the draft and message it sees.
type recordingHook struct {
	name       string
	beforeErr  error
	sawDraft   *Draft
	sawMessage *Message
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) BeforeCreate(_ context.Context, d *Draft) error {
	h.sawDraft = d
	if h.beforeErr != nil {
		return h.beforeErr
	}
	d.Metadata.Category = "hooked"
	return nil
}

func (h *recordingHook) AfterCreate(_ context.Context, m *Message) error {
	h.sawMessage = m
	return nil
}

// oversizeHook inflates the draft content past the configured limit.
type oversizeHook struct{}

func (oversizeHook) Name() string { return "oversize" }

func (oversizeHook) BeforeCreate(_ context.Context, d *Draft) error {
	d.Content = strings.Repeat("a", DefaultLimits.MaxContentLength+1)
	return nil
}

func (oversizeHook) AfterCreate(context.Context, *Message) error { return nil }

func TestCreateHooks(t *testing.T) {
	ctx := context.Background()

	t.Run("hooks run and may mutate the draft", func(t *testing.T) {
		hook := &recordingHook{name: "recorder"}
		svc := setupTestService(t, WithCreateHook(hook))
		defer svc.Close(ctx)

		msg, err := svc.Create(ctx, Draft{SenderID: "alice", RecipientID: "bob", Content: "hi"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if msg.Metadata.Category != "hooked" {
			t.Errorf("expected hook mutation, got category %q", msg.Metadata.Category)
		}
		if hook.sawMessage == nil || hook.sawMessage.ID != msg.ID {
			t.Error("AfterCreate did not observe the persisted message")
		}
	})

	t.Run("before-create failure aborts", func(t *testing.T) {
		hook := &recordingHook{name: "rejector", beforeErr: errors.New("nope")}
		svc := setupTestService(t, WithCreateHook(hook))
		defer svc.Close(ctx)

		_, err := svc.Create(ctx, Draft{SenderID: "alice", RecipientID: "bob", Content: "hi"})
		var herr *HookError
		if !errors.As(err, &herr) {
			t.Fatalf("expected *HookError, got %v", err)
		}
		if herr.Hook != "rejector" || herr.Op != "BeforeCreate" {
			t.Errorf("unexpected hook error: %+v", herr)
		}

		// Nothing persisted
		page, err := svc.Inbox(ctx, "bob", InboxOptions{})
		if err != nil {
			t.Fatalf("Inbox: %v", err)
		}
		if len(page) != 0 {
			t.Errorf("expected empty inbox after aborted create, got %d", len(page))
		}
	})

	t.Run("hook mutations are validated before persisting", func(t *testing.T) {
		svc := setupTestService(t, WithCreateHook(oversizeHook{}))
		defer svc.Close(ctx)

		_, err := svc.Create(ctx, Draft{SenderID: "alice", RecipientID: "bob", Content: "hi"})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}
		if verr.Field("content") == "" {
			t.Errorf("expected content violation, got %v", verr)
		}

		page, err := svc.Inbox(ctx, "bob", InboxOptions{})
		if err != nil {
			t.Fatalf("Inbox: %v", err)
		}
		if len(page) != 0 {
			t.Errorf("expected empty inbox after rejected create, got %d", len(page))
		}
	})
}
