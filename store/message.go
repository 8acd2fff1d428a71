package store

import "time"

// Message types. The set is closed: unknown values are rejected at
// validation time, never coerced to a default.
const (
	TypeDirect       = "direct"
	TypeSystem       = "system"
	TypeSupport      = "support"
	TypeNotification = "notification"
)

// Message priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidType reports whether t is a known message type.
func ValidType(t string) bool {
	switch t {
	case TypeDirect, TypeSystem, TypeSupport, TypeNotification:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Attachment describes a file attached to a message. The file bytes live in
// an AttachmentFileStore; the message record carries only the descriptor.
type Attachment struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// Metadata carries auxiliary message classification.
// Tags have set semantics: stores persist them deduplicated.
type Metadata struct {
	Category      string   `json:"category,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	AutoGenerated bool     `json:"auto_generated"`
	TemplateID    string   `json:"template_id,omitempty"`
}

// Message is the persisted message record.
//
// SenderID is empty if and only if the message was emitted by the platform
// (Type == TypeSystem). RelatedSwapRequestID is a weak reference: stores
// never verify it, and a dangling value is valid data.
//
// Invariants maintained by stores:
//   - IsRead is true exactly when ReadAt is non-nil. ReadAt is set on the
//     first unread-to-read transition and never cleared.
//   - ArchivedAt is re-stamped on every Archive call.
//   - UpdatedAt is bumped on every mutation.
type Message struct {
	ID                   string
	SenderID             string
	RecipientID          string
	Subject              string
	Content              string
	Type                 string
	Priority             string
	IsRead               bool
	ReadAt               *time.Time
	IsArchived           bool
	ArchivedAt           *time.Time
	RelatedSwapRequestID string
	Attachments          []Attachment
	Metadata             Metadata
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Clone returns a deep copy. Stores return clones so callers can never
// reach persisted state through a returned record.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.ReadAt != nil {
		t := *m.ReadAt
		c.ReadAt = &t
	}
	if m.ArchivedAt != nil {
		t := *m.ArchivedAt
		c.ArchivedAt = &t
	}
	if m.Attachments != nil {
		c.Attachments = make([]Attachment, len(m.Attachments))
		copy(c.Attachments, m.Attachments)
	}
	if m.Metadata.Tags != nil {
		c.Metadata.Tags = make([]string, len(m.Metadata.Tags))
		copy(c.Metadata.Tags, m.Metadata.Tags)
	}
	return &c
}

// MessageStats holds aggregate counts for a recipient's messages.
type MessageStats struct {
	Total    int64
	Unread   int64
	Archived int64
}

// Clone returns a copy of the stats.
func (s *MessageStats) Clone() *MessageStats {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
