package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/skillswap/messaging/template"
)

// DefaultSystemSubject is used when a system message does not set one.
const DefaultSystemSubject = "System Notification"

func (s *service) Create(ctx context.Context, draft Draft) (*Message, error) {
	start := time.Now()
	ctx, end := s.otel.startSpan(ctx, "messaging.Create",
		attribute.String("messaging.type", string(draft.Type)),
	)
	var err error
	defer func() {
		end(err)
		s.otel.recordCreate(ctx, time.Since(start), draft.Type, err)
	}()

	if err = s.checkConnected(); err != nil {
		return nil, err
	}
	if err = validateDraft(&draft, s.opts.limits); err != nil {
		return nil, err
	}
	if err = runBeforeCreate(ctx, s.opts.hooks, &draft); err != nil {
		return nil, err
	}
	if len(s.opts.hooks) > 0 {
		// Hooks may mutate the draft, so validate again before persisting.
		if err = validateDraft(&draft, s.opts.limits); err != nil {
			return nil, err
		}
	}

	if err = s.createSem.Acquire(ctx, 1); err != nil {
		err = fmt.Errorf("messaging: acquire create slot: %w", err)
		return nil, err
	}
	defer s.createSem.Release(1)

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	rec, createErr := s.store.Create(opCtx, draft.toRecord())
	if createErr != nil {
		err = translateStoreError(createErr)
		return nil, err
	}

	s.stats.invalidate(rec.RecipientID)

	msg := fromRecord(rec)
	s.attachProjections(ctx, []Message{msg})

	publish(ctx, s, "MessageSent", s.events.MessageSent, MessageSentEvent{
		MessageID:   msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Type:        msg.Type,
		Priority:    msg.Priority,
		SentAt:      msg.CreatedAt,
	})
	runAfterCreate(ctx, s.opts.hooks, s.opts.logger, &msg)

	return &msg, nil
}

func (s *service) CreateSystemMessage(ctx context.Context, recipientID, content string, opts ...SystemOption) (*Message, error) {
	so := systemOptions{
		subject:  DefaultSystemSubject,
		priority: PriorityMedium,
	}
	for _, opt := range opts {
		opt(&so)
	}

	if so.templateID != "" {
		rendered, err := s.opts.templates.Render(so.templateID, so.templateData)
		switch {
		case err == nil:
			content = rendered
		case errors.Is(err, template.ErrNotFound):
			// Unknown template: keep the caller-supplied content so the
			// notification still goes out.
			s.opts.logger.Warn("system message template not registered",
				"template_id", so.templateID)
		default:
			return nil, fmt.Errorf("messaging: render template: %w", err)
		}
	}

	draft := Draft{
		RecipientID:          recipientID,
		Subject:              so.subject,
		Content:              content,
		Type:                 TypeSystem,
		Priority:             so.priority,
		RelatedSwapRequestID: so.relatedSwapRequestID,
		Metadata: Metadata{
			Category:      so.category,
			Tags:          so.tags,
			AutoGenerated: true,
			TemplateID:    so.templateID,
		},
	}
	return s.Create(ctx, draft)
}

type systemOptions struct {
	subject              string
	priority             Priority
	relatedSwapRequestID string
	category             string
	tags                 []string
	templateID           string
	templateData         any
}

// SystemOption customizes a system message.
type SystemOption func(*systemOptions)

// WithSystemSubject overrides the default system subject line.
func WithSystemSubject(subject string) SystemOption {
	return func(o *systemOptions) {
		if subject != "" {
			o.subject = subject
		}
	}
}

// WithSystemPriority overrides the default medium priority.
func WithSystemPriority(p Priority) SystemOption {
	return func(o *systemOptions) {
		if p != "" {
			o.priority = p
		}
	}
}

// WithRelatedSwapRequest links the message to a swap request.
func WithRelatedSwapRequest(id string) SystemOption {
	return func(o *systemOptions) { o.relatedSwapRequestID = id }
}

// WithCategory sets the metadata category.
func WithCategory(category string) SystemOption {
	return func(o *systemOptions) { o.category = category }
}

// WithSystemTags sets the metadata tags.
func WithSystemTags(tags ...string) SystemOption {
	return func(o *systemOptions) { o.tags = tags }
}

// WithTemplate renders the message body from a registered template,
// overriding the content argument. When the template id is unknown the
// caller-supplied content is kept untouched.
func WithTemplate(id string, data any) SystemOption {
	return func(o *systemOptions) {
		o.templateID = id
		o.templateData = data
	}
}
