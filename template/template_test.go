package template

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and render", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register("greeting", "Hello {{.Name}}!"); err != nil {
			t.Fatalf("register: %v", err)
		}
		out, err := r.Render("greeting", map[string]any{"Name": "Alice"})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if out != "Hello Alice!" {
			t.Errorf("rendered %q", out)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Render("missing", nil)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register("", "body"); err == nil {
			t.Error("expected error for empty id")
		}
	})

	t.Run("parse errors surface at registration", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register("broken", "{{.Unclosed"); err == nil {
			t.Error("expected parse error")
		}
		if r.Has("broken") {
			t.Error("broken template should not be registered")
		}
	})

	t.Run("registration replaces", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register("v", "one"); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := r.Register("v", "two"); err != nil {
			t.Fatalf("re-register: %v", err)
		}
		out, err := r.Render("v", nil)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if out != "two" {
			t.Errorf("expected replacement, got %q", out)
		}
	})

	t.Run("missing keys render as zero values", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register("partial", "Hi {{.Name}}"); err != nil {
			t.Fatalf("register: %v", err)
		}
		out, err := r.Render("partial", map[string]string{})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if strings.Contains(out, "no value") {
			t.Errorf("missing key leaked into output: %q", out)
		}
	})

	t.Run("ids are sorted", func(t *testing.T) {
		r := NewRegistry()
		for _, id := range []string{"zeta", "alpha", "mid"} {
			if err := r.Register(id, "x"); err != nil {
				t.Fatalf("register %q: %v", id, err)
			}
		}
		ids := r.IDs()
		if !sort.StringsAreSorted(ids) {
			t.Errorf("ids not sorted: %v", ids)
		}
		if len(ids) != 3 {
			t.Errorf("expected 3 ids, got %d", len(ids))
		}
	})
}

func TestDefaultRegistry(t *testing.T) {
	for _, id := range []string{SwapAccepted, SwapDeclined, SwapCompleted, SwapReminder, Welcome} {
		if !DefaultRegistry.Has(id) {
			t.Errorf("built-in template %q not registered", id)
		}
	}

	out, err := DefaultRegistry.Render(SwapAccepted, map[string]any{
		"UserName":    "Bob",
		"SkillWanted": "pottery",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Bob") || !strings.Contains(out, "pottery") {
		t.Errorf("rendered %q", out)
	}
}
