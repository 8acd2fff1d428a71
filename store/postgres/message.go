package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/skillswap/messaging/store"
)

// messageColumns is the canonical SELECT column list for scanning messages.
// It must match the field order expected by scanMessage.
const messageColumns = `id, sender_id, recipient_id, subject, content, type, priority,
       is_read, read_at, is_archived, archived_at, related_swap_request,
       attachments, category, tags, auto_generated, template_id,
       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	var attachmentsJSON []byte
	var readAt, archivedAt sql.NullTime
	var relatedSwap sql.NullString

	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Subject, &msg.Content,
		&msg.Type, &msg.Priority,
		&msg.IsRead, &readAt, &msg.IsArchived, &archivedAt, &relatedSwap,
		&attachmentsJSON, &msg.Metadata.Category, pq.Array(&msg.Metadata.Tags),
		&msg.Metadata.AutoGenerated, &msg.Metadata.TemplateID,
		&msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	if archivedAt.Valid {
		msg.ArchivedAt = &archivedAt.Time
	}
	if relatedSwap.Valid {
		msg.RelatedSwapRequestID = relatedSwap.String
	}

	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}

	return &msg, nil
}

func marshalAttachments(attachments []store.Attachment) ([]byte, error) {
	if len(attachments) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(attachments)
}

// nullableSwap returns the related_swap_request column value: NULL keeps the
// partial index small when no swap request is referenced.
func nullableSwap(id string) any {
	if id == "" {
		return nil
	}
	return id
}
