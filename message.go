package messaging

import (
	"time"

	"github.com/skillswap/messaging/resolver"
	"github.com/skillswap/messaging/store"
)

// MessageType classifies a message. The zero value on a Draft defaults
// to TypeDirect during validation.
type MessageType string

const (
	TypeDirect       MessageType = MessageType(store.TypeDirect)
	TypeSystem       MessageType = MessageType(store.TypeSystem)
	TypeSupport      MessageType = MessageType(store.TypeSupport)
	TypeNotification MessageType = MessageType(store.TypeNotification)
)

// Valid reports whether the type is one of the known values.
func (t MessageType) Valid() bool {
	return store.ValidType(string(t))
}

// Priority orders messages by urgency. The zero value on a Draft defaults
// to PriorityMedium during validation.
type Priority string

const (
	PriorityLow    Priority = Priority(store.PriorityLow)
	PriorityMedium Priority = Priority(store.PriorityMedium)
	PriorityHigh   Priority = Priority(store.PriorityHigh)
	PriorityUrgent Priority = Priority(store.PriorityUrgent)
)

// Valid reports whether the priority is one of the known values.
func (p Priority) Valid() bool {
	return store.ValidPriority(string(p))
}

// Attachment describes an uploaded file carried by a message.
type Attachment = store.Attachment

// Metadata carries optional classification data for a message.
type Metadata = store.Metadata

// Message is a read-only snapshot of a stored message, decorated with
// resolved projections of its weak references. Sender is nil for system
// messages and for senders the resolver no longer knows about.
type Message struct {
	ID                   string       `json:"id"`
	SenderID             string       `json:"senderId,omitempty"`
	RecipientID          string       `json:"recipientId"`
	Subject              string       `json:"subject,omitempty"`
	Content              string       `json:"content"`
	Type                 MessageType  `json:"type"`
	Priority             Priority     `json:"priority"`
	IsRead               bool         `json:"isRead"`
	ReadAt               *time.Time   `json:"readAt,omitempty"`
	IsArchived           bool         `json:"isArchived"`
	ArchivedAt           *time.Time   `json:"archivedAt,omitempty"`
	RelatedSwapRequestID string       `json:"relatedSwapRequest,omitempty"`
	Attachments          []Attachment `json:"attachments,omitempty"`
	Metadata             Metadata     `json:"metadata"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`

	// Resolved projections. Nil when the referenced entity is unknown,
	// never an error: dangling references are expected after deletions.
	Sender             *resolver.UserProfile        `json:"sender,omitempty"`
	Recipient          *resolver.UserProfile        `json:"recipient,omitempty"`
	RelatedSwapRequest *resolver.SwapRequestSummary `json:"relatedSwapRequestSummary,omitempty"`
}

// IsSystem reports whether the message was generated by the platform
// rather than sent by a user.
func (m *Message) IsSystem() bool {
	return m.Type == TypeSystem
}

// fromRecord converts a store record into an API snapshot. Projections
// are left nil; callers attach them after batch resolution.
func fromRecord(rec *store.Message) Message {
	return Message{
		ID:                   rec.ID,
		SenderID:             rec.SenderID,
		RecipientID:          rec.RecipientID,
		Subject:              rec.Subject,
		Content:              rec.Content,
		Type:                 MessageType(rec.Type),
		Priority:             Priority(rec.Priority),
		IsRead:               rec.IsRead,
		ReadAt:               rec.ReadAt,
		IsArchived:           rec.IsArchived,
		ArchivedAt:           rec.ArchivedAt,
		RelatedSwapRequestID: rec.RelatedSwapRequestID,
		Attachments:          rec.Attachments,
		Metadata:             rec.Metadata,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

// Draft is the input to Create. Zero-valued Type and Priority are filled
// with their defaults during validation; all other fields are taken as-is
// after trimming.
type Draft struct {
	SenderID             string
	RecipientID          string
	Subject              string
	Content              string
	Type                 MessageType
	Priority             Priority
	RelatedSwapRequestID string
	Attachments          []Attachment
	Metadata             Metadata
}

func (d *Draft) toRecord() *store.Message {
	return &store.Message{
		SenderID:             d.SenderID,
		RecipientID:          d.RecipientID,
		Subject:              d.Subject,
		Content:              d.Content,
		Type:                 string(d.Type),
		Priority:             string(d.Priority),
		RelatedSwapRequestID: d.RelatedSwapRequestID,
		Attachments:          d.Attachments,
		Metadata:             d.Metadata,
	}
}
