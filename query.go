package messaging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/skillswap/messaging/store"
)

// InboxOptions pages and filters an inbox query. Archived messages are
// included unless filtered out by the caller; archiving hides nothing
// by itself.
type InboxOptions struct {
	// Limit caps the page size. Zero means the default; values above
	// the configured maximum are clamped.
	Limit int
	// Skip is the number of newest messages to pass over.
	Skip int
	// UnreadOnly restricts the page to unread messages.
	UnreadOnly bool
	// Type restricts the page to one message type. Empty means all.
	Type MessageType
}

// PageOptions pages a sent-messages or conversation query.
type PageOptions struct {
	Limit int
	Skip  int
}

func (s *service) Get(ctx context.Context, id string) (*Message, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.Get",
		attribute.String("messaging.message_id", id),
	)
	var err error
	defer func() {
		end(err)
		s.otel.recordGet(ctx, time.Since(start), err)
	}()

	if err = s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		err = ErrInvalidMessageID
		return nil, err
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	rec, getErr := s.store.Get(opCtx, id)
	if getErr != nil {
		err = translateStoreError(getErr)
		return nil, err
	}

	msg := fromRecord(rec)
	s.attachProjections(ctx, []Message{msg})
	return &msg, nil
}

func (s *service) Inbox(ctx context.Context, userID string, opts InboxOptions) ([]Message, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.Inbox",
		attribute.String("messaging.user_id", userID),
	)
	var err error
	var msgs []Message
	defer func() {
		end(err)
		s.otel.recordList(ctx, time.Since(start), "inbox", len(msgs), err)
	}()

	if err = s.checkConnected(); err != nil {
		return nil, err
	}
	if !isValidUserID(userID) {
		err = ErrInvalidUserID
		return nil, err
	}
	if opts.Type != "" && !opts.Type.Valid() {
		verr := &ValidationError{}
		verr.add("type", "unknown message type")
		err = verr
		return nil, err
	}

	filters := []store.Filter{store.RecipientIs(userID)}
	if opts.UnreadOnly {
		filters = append(filters, store.IsUnread())
	}
	if opts.Type != "" {
		filters = append(filters, store.TypeIs(string(opts.Type)))
	}

	msgs, err = s.find(ctx, filters, s.pageOf(opts.Limit, opts.Skip, s.opts.queryLimit))
	return msgs, err
}

func (s *service) SentMessages(ctx context.Context, userID string, opts PageOptions) ([]Message, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.SentMessages",
		attribute.String("messaging.user_id", userID),
	)
	var err error
	var msgs []Message
	defer func() {
		end(err)
		s.otel.recordList(ctx, time.Since(start), "sent", len(msgs), err)
	}()

	if err = s.checkConnected(); err != nil {
		return nil, err
	}
	if !isValidUserID(userID) {
		err = ErrInvalidUserID
		return nil, err
	}

	filters := []store.Filter{store.SenderIs(userID)}
	msgs, err = s.find(ctx, filters, s.pageOf(opts.Limit, opts.Skip, s.opts.queryLimit))
	return msgs, err
}

func (s *service) Conversation(ctx context.Context, userA, userB string, opts PageOptions) ([]Message, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.Conversation")
	var err error
	var msgs []Message
	defer func() {
		end(err)
		s.otel.recordList(ctx, time.Since(start), "conversation", len(msgs), err)
	}()

	if err = s.checkConnected(); err != nil {
		return nil, err
	}
	if !isValidUserID(userA) || !isValidUserID(userB) {
		err = ErrInvalidUserID
		return nil, err
	}

	page := s.pageOf(opts.Limit, opts.Skip, s.opts.conversationLimit)
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	recs, findErr := s.store.FindConversation(opCtx, userA, userB, page)
	if findErr != nil {
		err = translateStoreError(findErr)
		return nil, err
	}

	msgs = s.snapshots(ctx, recs)
	return msgs, nil
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	st, err := s.Stats(ctx, userID)
	if err != nil {
		return 0, err
	}
	return st.Unread, nil
}

func (s *service) Stats(ctx context.Context, userID string) (*store.MessageStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if !isValidUserID(userID) {
		return nil, ErrInvalidUserID
	}

	if st, ok := s.stats.get(userID); ok {
		return st, nil
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	st, err := s.fetchStats(opCtx, userID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	s.stats.put(userID, st)
	return st.Clone(), nil
}

// fetchStats prefers the store's native aggregation and falls back to
// three counting queries.
func (s *service) fetchStats(ctx context.Context, userID string) (*store.MessageStats, error) {
	if sr, ok := s.store.(store.StatsReader); ok {
		return sr.Stats(ctx, userID)
	}

	recipient := store.RecipientIs(userID)
	total, err := s.store.Count(ctx, []store.Filter{recipient})
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Count(ctx, []store.Filter{recipient, store.IsUnread()})
	if err != nil {
		return nil, err
	}
	archived, err := s.store.Count(ctx, []store.Filter{recipient, store.IsArchivedFilter(true)})
	if err != nil {
		return nil, err
	}
	return &store.MessageStats{Total: total, Unread: unread, Archived: archived}, nil
}

// find runs a filtered query and resolves projections on the page.
func (s *service) find(ctx context.Context, filters []store.Filter, page store.ListOptions) ([]Message, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	recs, err := s.store.Find(opCtx, filters, page)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return s.snapshots(ctx, recs), nil
}

// pageOf clamps paging inputs and fixes the newest-first ordering with
// a stable id tie-break.
func (s *service) pageOf(limit, skip, def int) store.ListOptions {
	if limit <= 0 {
		limit = def
	}
	if limit > s.opts.maxQueryLimit {
		limit = s.opts.maxQueryLimit
	}
	if skip < 0 {
		skip = 0
	}
	return store.ListOptions{
		Limit:     limit,
		Offset:    skip,
		SortBy:    "created_at",
		SortOrder: store.SortDesc,
	}
}

func (s *service) snapshots(ctx context.Context, recs []*store.Message) []Message {
	msgs := make([]Message, len(recs))
	for i, rec := range recs {
		msgs[i] = fromRecord(rec)
	}
	s.attachProjections(ctx, msgs)
	return msgs
}

// attachProjections resolves sender, recipient and swap request
// references in one batch per resolver. Unknown references stay nil;
// resolver failures degrade the page rather than failing it.
func (s *service) attachProjections(ctx context.Context, msgs []Message) {
	if len(msgs) == 0 {
		return
	}

	if s.opts.users != nil {
		ids := make([]string, 0, len(msgs)*2)
		seen := make(map[string]struct{}, len(msgs)*2)
		for i := range msgs {
			for _, id := range []string{msgs[i].SenderID, msgs[i].RecipientID} {
				if id == "" {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		profiles, err := s.opts.users.ResolveBatch(ctx, ids)
		if err != nil {
			s.opts.logger.Warn("user resolution failed", "error", err)
		} else {
			for i := range msgs {
				msgs[i].Sender = profiles[msgs[i].SenderID]
				msgs[i].Recipient = profiles[msgs[i].RecipientID]
			}
		}
	}

	if s.opts.swaps != nil {
		ids := make([]string, 0, len(msgs))
		seen := make(map[string]struct{}, len(msgs))
		for i := range msgs {
			id := msgs[i].RelatedSwapRequestID
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return
		}
		summaries, err := s.opts.swaps.ResolveBatch(ctx, ids)
		if err != nil {
			s.opts.logger.Warn("swap request resolution failed", "error", err)
			return
		}
		for i := range msgs {
			if id := msgs[i].RelatedSwapRequestID; id != "" {
				msgs[i].RelatedSwapRequest = summaries[id]
			}
		}
	}
}
