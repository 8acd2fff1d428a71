package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/skillswap/messaging/store"
)

// Get retrieves a message by ID.
func (s *Store) Get(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, s.opts.table)

	msg, err := s.scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// Find retrieves messages matching the filters.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	where, args := s.buildWhereClause(filters)
	return s.query(ctx, where, args, opts)
}

// FindWithCount retrieves matching messages and the total match count.
func (s *Store) FindWithCount(ctx context.Context, filters []store.Filter, opts store.ListOptions) ([]*store.Message, int64, error) {
	if err := s.checkConnected(); err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	where, args := s.buildWhereClause(filters)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.opts.table, where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	msgs, err := s.query(ctx, where, args, opts)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

// Count returns the count of messages matching the filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	where, args := s.buildWhereClause(filters)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.opts.table, where)
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// FindConversation retrieves messages exchanged between two users in either
// direction.
func (s *Store) FindConversation(ctx context.Context, userA, userB string, opts store.ListOptions) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	where := `((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))`
	return s.query(ctx, where, []any{userA, userB}, opts)
}

// Stats returns aggregate counts for messages addressed to recipientID.
func (s *Store) Stats(ctx context.Context, recipientID string) (*store.MessageStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_read = FALSE),
		       COUNT(*) FILTER (WHERE is_archived = TRUE)
		FROM %s
		WHERE recipient_id = $1
	`, s.opts.table)

	var stats store.MessageStats
	err := s.db.QueryRowContext(ctx, query, recipientID).
		Scan(&stats.Total, &stats.Unread, &stats.Archived)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return &stats, nil
}

// query runs a SELECT with ordering and pagination applied. The id column is
// always the final ORDER BY component, ascending, so pages are stable for
// equal sort values.
func (s *Store) query(ctx context.Context, where string, args []any, opts store.ListOptions) ([]*store.Message, error) {
	sortOrder := "DESC"
	if opts.SortOrder == store.SortAsc {
		sortOrder = "ASC"
	}
	sortField := s.mapSortField(opts.SortBy)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY %s %s, id ASC
	`, messageColumns, s.opts.table, where, sortField, sortOrder)

	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, opts.Limit, opts.Offset)
	} else if opts.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := s.scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (s *Store) buildWhereClause(filters []store.Filter) (string, []any) {
	var conditions []string
	var args []any
	argIdx := 1

	for _, f := range filters {
		cond, arg := s.filterToCondition(f, &argIdx)
		if cond != "" {
			conditions = append(conditions, cond)
			if arg != nil {
				args = append(args, arg)
			}
		}
	}

	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), args
}

func (s *Store) filterToCondition(f store.Filter, argIdx *int) (string, any) {
	key, ok := store.MessageFieldKey(f.Key())
	if !ok {
		return "", nil
	}
	val := f.Value()

	switch f.Operator() {
	case "eq", "":
		cond := fmt.Sprintf("%s = $%d", key, *argIdx)
		*argIdx++
		return cond, val
	case "ne":
		cond := fmt.Sprintf("%s != $%d", key, *argIdx)
		*argIdx++
		return cond, val
	case "gt":
		cond := fmt.Sprintf("%s > $%d", key, *argIdx)
		*argIdx++
		return cond, val
	case "gte":
		cond := fmt.Sprintf("%s >= $%d", key, *argIdx)
		*argIdx++
		return cond, val
	case "lt":
		cond := fmt.Sprintf("%s < $%d", key, *argIdx)
		*argIdx++
		return cond, val
	case "lte":
		cond := fmt.Sprintf("%s <= $%d", key, *argIdx)
		*argIdx++
		return cond, val
	case "in":
		cond := fmt.Sprintf("%s = ANY($%d)", key, *argIdx)
		*argIdx++
		return cond, pq.Array(val)
	default:
		return "", nil
	}
}

func (s *Store) mapSortField(field string) string {
	switch field {
	case "UpdatedAt", "updated_at":
		return "updated_at"
	default:
		return "created_at"
	}
}
