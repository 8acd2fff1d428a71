package messaging

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestValidateDraft(t *testing.T) {
	t.Run("normalizes in place", func(t *testing.T) {
		d := Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Subject:     "  Trim me  ",
			Content:     "\n  body  \t",
		}
		if err := validateDraft(&d, DefaultLimits); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Subject != "Trim me" {
			t.Errorf("subject not trimmed: %q", d.Subject)
		}
		if d.Content != "body" {
			t.Errorf("content not trimmed: %q", d.Content)
		}
		if d.Type != TypeDirect {
			t.Errorf("type not defaulted: %q", d.Type)
		}
		if d.Priority != PriorityMedium {
			t.Errorf("priority not defaulted: %q", d.Priority)
		}
	})

	t.Run("invalid enums are rejected, not defaulted", func(t *testing.T) {
		d := Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "hi",
			Type:        "telepathy",
			Priority:    "whenever",
		}
		err := validateDraft(&d, DefaultLimits)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Field("type") == "" || verr.Field("priority") == "" {
			t.Errorf("expected type and priority failures, got %v", verr)
		}
	})

	t.Run("system messages may omit sender", func(t *testing.T) {
		d := Draft{RecipientID: "bob", Content: "hi", Type: TypeSystem}
		if err := validateDraft(&d, DefaultLimits); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		d = Draft{RecipientID: "bob", Content: "hi", Type: TypeSupport}
		err := validateDraft(&d, DefaultLimits)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field("sender") == "" {
			t.Errorf("expected sender failure for support message, got %v", err)
		}
	})

	t.Run("length limits count runes", func(t *testing.T) {
		d := Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     strings.Repeat("ü", DefaultLimits.MaxContentLength),
		}
		if err := validateDraft(&d, DefaultLimits); err != nil {
			t.Errorf("multibyte content at the limit should pass: %v", err)
		}

		d.Content = strings.Repeat("ü", DefaultLimits.MaxContentLength+1)
		err := validateDraft(&d, DefaultLimits)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field("content") == "" {
			t.Errorf("expected content failure, got %v", err)
		}
	})

	t.Run("attachments need filename and url", func(t *testing.T) {
		d := Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "hi",
			Attachments: []Attachment{
				{Filename: "a.pdf", URL: "s3://bucket/a.pdf"},
				{Filename: "", URL: "s3://bucket/b.pdf"},
			},
		}
		err := validateDraft(&d, DefaultLimits)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Field("attachments[1]") == "" {
			t.Errorf("expected attachments[1] failure, got %v", verr)
		}
	})

	t.Run("custom limits", func(t *testing.T) {
		limits := DefaultLimits
		limits.MaxSubjectLength = 5
		d := Draft{SenderID: "alice", RecipientID: "bob", Subject: "too long", Content: "hi"}
		err := validateDraft(&d, limits)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field("subject") == "" {
			t.Errorf("expected subject failure at custom limit, got %v", err)
		}
	})
}

func TestDedupeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil stays nil", nil, nil},
		{"duplicates removed", []string{"go", "go", "redis"}, []string{"go", "redis"}},
		{"first-seen order kept", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
		{"empty and blank dropped", []string{"", "  ", "x"}, []string{"x"}},
		{"whitespace trimmed before comparison", []string{" go ", "go"}, []string{"go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupeTags(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("dedupeTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidUserID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"alice", true},
		{"user-123_456", true},
		{"user@example.com", true},
		{"", false},
		{"a/b", false},
		{`a\b`, false},
		{"tab\there", false},
		{"bell\x07", false},
		{strings.Repeat("x", 128), true},
		{strings.Repeat("x", 129), false},
	}
	for _, tt := range tests {
		if got := isValidUserID(tt.id); got != tt.valid {
			t.Errorf("isValidUserID(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}
