package messaging

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MessageLimits bounds the user-supplied fields of a draft.
type MessageLimits struct {
	MaxSubjectLength int
	MaxContentLength int
	MaxAttachments   int
	MaxTags          int
}

// DefaultLimits are applied unless overridden with WithLimits.
var DefaultLimits = MessageLimits{
	MaxSubjectLength: 200,
	MaxContentLength: 5000,
	MaxAttachments:   10,
	MaxTags:          20,
}

// validateDraft normalizes the draft in place (trimming, defaulting,
// tag de-duplication) and collects every validation failure before
// returning, so callers see the full list in one round trip.
func validateDraft(d *Draft, limits MessageLimits) error {
	verr := &ValidationError{}

	d.Subject = strings.TrimSpace(d.Subject)
	d.Content = strings.TrimSpace(d.Content)

	if d.Type == "" {
		d.Type = TypeDirect
	} else if !d.Type.Valid() {
		verr.add("type", fmt.Sprintf("unknown message type %q", d.Type))
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	} else if !d.Priority.Valid() {
		verr.add("priority", fmt.Sprintf("unknown priority %q", d.Priority))
	}

	if d.RecipientID == "" {
		verr.add("recipient", "recipient is required")
	} else if !isValidUserID(d.RecipientID) {
		verr.add("recipient", "recipient id contains invalid characters")
	}

	// Only platform-generated messages may omit the sender.
	if d.SenderID == "" {
		if d.Type != TypeSystem {
			verr.add("sender", "sender is required for non-system messages")
		}
	} else if !isValidUserID(d.SenderID) {
		verr.add("sender", "sender id contains invalid characters")
	}

	if d.Content == "" {
		verr.add("content", "content is required")
	} else if n := utf8.RuneCountInString(d.Content); n > limits.MaxContentLength {
		verr.add("content", fmt.Sprintf("content exceeds %d characters (got %d)", limits.MaxContentLength, n))
	}

	if n := utf8.RuneCountInString(d.Subject); n > limits.MaxSubjectLength {
		verr.add("subject", fmt.Sprintf("subject exceeds %d characters (got %d)", limits.MaxSubjectLength, n))
	}

	if len(d.Attachments) > limits.MaxAttachments {
		verr.add("attachments", fmt.Sprintf("at most %d attachments allowed", limits.MaxAttachments))
	}
	for i, a := range d.Attachments {
		if a.Filename == "" || a.URL == "" {
			verr.add(fmt.Sprintf("attachments[%d]", i), "filename and url are required")
		}
	}

	d.Metadata.Tags = dedupeTags(d.Metadata.Tags)
	if len(d.Metadata.Tags) > limits.MaxTags {
		verr.add("metadata.tags", fmt.Sprintf("at most %d tags allowed", limits.MaxTags))
	}

	return verr.err()
}

// dedupeTags drops empty and repeated tags, preserving first-seen order.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// isValidUserID rejects identifiers with path separators or control
// characters. Identifiers are opaque otherwise.
func isValidUserID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f || r == '/' || r == '\\' {
			return false
		}
	}
	return true
}
