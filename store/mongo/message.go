package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/skillswap/messaging/store"
)

// messageDoc is the MongoDB document representation.
//
// SenderID is omitted for system messages so the sparse sender index stays
// small; an absent field decodes to the empty string, which is the record's
// platform-sender value.
type messageDoc struct {
	ID                   bson.ObjectID   `bson:"_id,omitempty"`
	SenderID             string          `bson:"sender_id,omitempty"`
	RecipientID          string          `bson:"recipient_id"`
	Subject              string          `bson:"subject,omitempty"`
	Content              string          `bson:"content"`
	Type                 string          `bson:"type"`
	Priority             string          `bson:"priority"`
	IsRead               bool            `bson:"is_read"`
	ReadAt               *time.Time      `bson:"read_at,omitempty"`
	IsArchived           bool            `bson:"is_archived"`
	ArchivedAt           *time.Time      `bson:"archived_at,omitempty"`
	RelatedSwapRequestID string          `bson:"related_swap_request,omitempty"`
	Attachments          []attachmentDoc `bson:"attachments,omitempty"`
	Metadata             metadataDoc     `bson:"metadata"`
	CreatedAt            time.Time       `bson:"created_at"`
	UpdatedAt            time.Time       `bson:"updated_at"`
}

// attachmentDoc is the MongoDB document for attachments.
type attachmentDoc struct {
	Filename     string `bson:"filename"`
	OriginalName string `bson:"original_name"`
	MimeType     string `bson:"mimetype"`
	Size         int64  `bson:"size"`
	URL          string `bson:"url"`
}

// metadataDoc is the MongoDB document for message metadata.
type metadataDoc struct {
	Category      string   `bson:"category,omitempty"`
	Tags          []string `bson:"tags,omitempty"`
	AutoGenerated bool     `bson:"auto_generated"`
	TemplateID    string   `bson:"template_id,omitempty"`
}

// messageToDoc converts a record to its document form. The ID field is left
// unset when the record has no ID; InsertOne assigns one.
func messageToDoc(m *store.Message) *messageDoc {
	doc := &messageDoc{
		SenderID:             m.SenderID,
		RecipientID:          m.RecipientID,
		Subject:              m.Subject,
		Content:              m.Content,
		Type:                 m.Type,
		Priority:             m.Priority,
		IsRead:               m.IsRead,
		ReadAt:               m.ReadAt,
		IsArchived:           m.IsArchived,
		ArchivedAt:           m.ArchivedAt,
		RelatedSwapRequestID: m.RelatedSwapRequestID,
		Metadata: metadataDoc{
			Category:      m.Metadata.Category,
			Tags:          m.Metadata.Tags,
			AutoGenerated: m.Metadata.AutoGenerated,
			TemplateID:    m.Metadata.TemplateID,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if len(m.Attachments) > 0 {
		doc.Attachments = make([]attachmentDoc, len(m.Attachments))
		for i, a := range m.Attachments {
			doc.Attachments[i] = attachmentDoc(a)
		}
	}

	if m.ID != "" {
		if oid, err := bson.ObjectIDFromHex(m.ID); err == nil {
			doc.ID = oid
		}
	}
	return doc
}

// docToMessage converts a document back to the shared record form.
func docToMessage(doc *messageDoc) *store.Message {
	m := &store.Message{
		ID:                   doc.ID.Hex(),
		SenderID:             doc.SenderID,
		RecipientID:          doc.RecipientID,
		Subject:              doc.Subject,
		Content:              doc.Content,
		Type:                 doc.Type,
		Priority:             doc.Priority,
		IsRead:               doc.IsRead,
		ReadAt:               doc.ReadAt,
		IsArchived:           doc.IsArchived,
		ArchivedAt:           doc.ArchivedAt,
		RelatedSwapRequestID: doc.RelatedSwapRequestID,
		Metadata: store.Metadata{
			Category:      doc.Metadata.Category,
			Tags:          doc.Metadata.Tags,
			AutoGenerated: doc.Metadata.AutoGenerated,
			TemplateID:    doc.Metadata.TemplateID,
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}

	if len(doc.Attachments) > 0 {
		m.Attachments = make([]store.Attachment, len(doc.Attachments))
		for i, a := range doc.Attachments {
			m.Attachments[i] = store.Attachment(a)
		}
	}
	return m
}
