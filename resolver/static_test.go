package resolver

import (
	"context"
	"testing"
)

func TestStaticUsers(t *testing.T) {
	ctx := context.Background()
	source := map[string]*UserProfile{
		"alice": {Name: "Alice", Role: "user"},
		"bob":   {Name: "Bob", Role: "admin"},
	}
	r := NewStaticUsers(source)

	t.Run("resolve known", func(t *testing.T) {
		p, err := r.Resolve(ctx, "alice")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if p == nil || p.Name != "Alice" {
			t.Errorf("got %+v", p)
		}
	})

	t.Run("unknown resolves to nil, not error", func(t *testing.T) {
		p, err := r.Resolve(ctx, "ghost")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if p != nil {
			t.Errorf("expected nil, got %+v", p)
		}
	})

	t.Run("batch omits unknown ids", func(t *testing.T) {
		got, err := r.ResolveBatch(ctx, []string{"alice", "ghost", "bob"})
		if err != nil {
			t.Fatalf("resolve batch: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
		if _, ok := got["ghost"]; ok {
			t.Error("unknown id should be absent, not nil-valued")
		}
	})

	t.Run("source map is copied", func(t *testing.T) {
		source["carol"] = &UserProfile{Name: "Carol"}
		p, err := r.Resolve(ctx, "carol")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if p != nil {
			t.Error("mutating the source map should not affect the resolver")
		}
	})
}

func TestStaticSwapRequests(t *testing.T) {
	ctx := context.Background()
	r := NewStaticSwapRequests(map[string]*SwapRequestSummary{
		"swap-1": {SkillOffered: "guitar", SkillWanted: "spanish", Status: "pending"},
	})

	s, err := r.Resolve(ctx, "swap-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s == nil || s.SkillOffered != "guitar" {
		t.Errorf("got %+v", s)
	}

	gone, err := r.Resolve(ctx, "swap-deleted")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gone != nil {
		t.Errorf("expected nil for unknown id, got %+v", gone)
	}
}
