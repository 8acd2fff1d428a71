package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/messaging/store"
)

// MarkRead transitions a message to read via a single conditional UPDATE.
// Only unread rows match, so the transition is applied at most once and
// ReadAt is never overwritten.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (*store.Message, bool, error) {
	if err := s.checkConnected(); err != nil {
		return nil, false, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, false, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	at = at.UTC()
	query := fmt.Sprintf(`
		UPDATE %s SET is_read = TRUE, read_at = $1, updated_at = $1
		WHERE id = $2 AND is_read = FALSE
		RETURNING %s
	`, s.opts.table, messageColumns)

	msg, err := s.scanMessage(s.db.QueryRowContext(ctx, query, at, id))
	if err == nil {
		return msg, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("mark read: %w", err)
	}

	// Unmatched: either already read or missing. Get distinguishes the two.
	msg, err = s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return msg, false, nil
}

// Archive marks a message archived. The update is unconditional: repeat calls
// re-stamp archived_at.
func (s *Store) Archive(ctx context.Context, id string, at time.Time) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	at = at.UTC()
	query := fmt.Sprintf(`
		UPDATE %s SET is_archived = TRUE, archived_at = $1, updated_at = $1
		WHERE id = $2
		RETURNING %s
	`, s.opts.table, messageColumns)

	msg, err := s.scanMessage(s.db.QueryRowContext(ctx, query, at, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("archive message: %w", err)
	}
	return msg, nil
}

// MarkAllRead marks every unread message addressed to recipientID as read in
// a single UPDATE.
func (s *Store) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	at = at.UTC()
	query := fmt.Sprintf(`
		UPDATE %s SET is_read = TRUE, read_at = $1, updated_at = $1
		WHERE recipient_id = $2 AND is_read = FALSE
	`, s.opts.table)

	result, err := s.db.ExecContext(ctx, query, at, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}

// PurgeArchived deletes archived messages with archived_at before cutoff.
// Safe to call concurrently from multiple instances; each row is deleted
// exactly once.
func (s *Store) PurgeArchived(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE is_archived = TRUE AND archived_at < $1
	`, s.opts.table)

	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge archived: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}
