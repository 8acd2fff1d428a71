package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/skillswap/messaging/store"
)

// Create persists a new message. A single INSERT is atomic: the row is fully
// created or not at all.
func (s *Store) Create(ctx context.Context, msg *store.Message) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	record := msg.Clone()
	if record.ID == "" {
		record.ID = uuid.New().String()
	} else if _, err := uuid.Parse(record.ID); err != nil {
		return nil, store.ErrInvalidID
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	attachmentsJSON, err := marshalAttachments(record.Attachments)
	if err != nil {
		return nil, fmt.Errorf("marshal attachments: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, sender_id, recipient_id, subject, content, type, priority,
		                is_read, read_at, is_archived, archived_at, related_swap_request,
		                attachments, category, tags, auto_generated, template_id,
		                created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`, s.opts.table)

	err = s.db.QueryRowContext(ctx, query,
		record.ID, record.SenderID, record.RecipientID, record.Subject, record.Content,
		record.Type, record.Priority,
		record.IsRead, record.ReadAt, record.IsArchived, record.ArchivedAt,
		nullableSwap(record.RelatedSwapRequestID),
		attachmentsJSON, record.Metadata.Category, pq.Array(record.Metadata.Tags),
		record.Metadata.AutoGenerated, record.Metadata.TemplateID,
		record.CreatedAt, record.UpdatedAt,
	).Scan(&record.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, store.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return record, nil
}
