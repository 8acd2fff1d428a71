package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/skillswap/messaging/store"
)

func (s *service) MarkAsRead(ctx context.Context, id string) (*Message, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.MarkAsRead",
		attribute.String("messaging.message_id", id),
	)
	var err error
	defer func() {
		end(err)
		s.otel.recordUpdate(ctx, time.Since(start), "mark_read", err)
	}()

	if err = s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		err = ErrInvalidMessageID
		return nil, err
	}

	now := time.Now().UTC()
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	rec, changed, markErr := s.store.MarkRead(opCtx, id, now)
	if markErr != nil {
		err = translateStoreError(markErr)
		return nil, err
	}

	msg := fromRecord(rec)
	s.attachProjections(ctx, []Message{msg})

	// Already-read messages keep their original timestamp and do not
	// republish the event.
	if changed {
		s.stats.invalidate(rec.RecipientID)
		readAt := now
		if rec.ReadAt != nil {
			readAt = *rec.ReadAt
		}
		publish(ctx, s, "MessageRead", s.events.MessageRead, MessageReadEvent{
			MessageID:   msg.ID,
			RecipientID: msg.RecipientID,
			ReadAt:      readAt,
		})
	}

	return &msg, nil
}

func (s *service) Archive(ctx context.Context, id string) (*Message, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.Archive",
		attribute.String("messaging.message_id", id),
	)
	var err error
	defer func() {
		end(err)
		s.otel.recordUpdate(ctx, time.Since(start), "archive", err)
	}()

	if err = s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		err = ErrInvalidMessageID
		return nil, err
	}

	now := time.Now().UTC()
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	rec, archiveErr := s.store.Archive(opCtx, id, now)
	if archiveErr != nil {
		err = translateStoreError(archiveErr)
		return nil, err
	}

	s.stats.invalidate(rec.RecipientID)

	msg := fromRecord(rec)
	s.attachProjections(ctx, []Message{msg})

	publish(ctx, s, "MessageArchived", s.events.MessageArchived, MessageArchivedEvent{
		MessageID:   msg.ID,
		RecipientID: msg.RecipientID,
		ArchivedAt:  now,
	})

	return &msg, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.MarkAllRead",
		attribute.String("messaging.user_id", userID),
	)
	var err error
	defer func() {
		end(err)
		s.otel.recordUpdate(ctx, time.Since(start), "mark_all_read", err)
	}()

	if err = s.checkConnected(); err != nil {
		return 0, err
	}
	if !isValidUserID(userID) {
		err = ErrInvalidUserID
		return 0, err
	}

	bm, ok := s.store.(store.BulkReadMarker)
	if !ok {
		err = fmt.Errorf("messaging: store does not support bulk read marking: %w", errors.ErrUnsupported)
		return 0, err
	}

	now := time.Now().UTC()
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	count, markErr := bm.MarkAllRead(opCtx, userID, now)
	if markErr != nil {
		err = translateStoreError(markErr)
		return 0, err
	}

	if count > 0 {
		s.stats.invalidate(userID)
		publish(ctx, s, "InboxRead", s.events.InboxRead, InboxReadEvent{
			RecipientID: userID,
			Count:       count,
			ReadAt:      now,
		})
	}

	return count, nil
}

func (s *service) PurgeArchived(ctx context.Context, olderThan time.Duration) (int64, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.PurgeArchived")
	var err error
	var removed int64
	defer func() {
		end(err)
		s.otel.recordPurge(ctx, time.Since(start), removed, err)
	}()

	if err = s.checkConnected(); err != nil {
		return 0, err
	}
	if olderThan < 0 {
		err = errors.New("messaging: negative purge window")
		return 0, err
	}

	ap, ok := s.store.(store.ArchivePurger)
	if !ok {
		err = fmt.Errorf("messaging: store does not support purging: %w", errors.ErrUnsupported)
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	removed, purgeErr := ap.PurgeArchived(opCtx, cutoff)
	if purgeErr != nil {
		err = translateStoreError(purgeErr)
		return 0, err
	}

	if removed > 0 {
		// Purged messages may belong to any recipient.
		s.stats.invalidateAll()
		s.opts.logger.Info("purged archived messages", "removed", removed, "cutoff", cutoff)
	}

	return removed, nil
}
