package store

import (
	"fmt"
	"time"
)

// SortOrder represents the sort direction.
type SortOrder int

const (
	// SortAsc sorts in ascending order.
	SortAsc SortOrder = 1
	// SortDesc sorts in descending order.
	SortDesc SortOrder = -1
)

// ListOptions configures message listing.
//
// Results are always ordered by the sort field with ID ascending as the
// tie-break, so fixed-window pagination is stable for equal timestamps.
type ListOptions struct {
	Limit     int
	Offset    int
	SortBy    string // defaults to "created_at"
	SortOrder SortOrder
}

// Filter represents a query filter with a field key, comparison operator, and value.
type Filter struct {
	key      string
	value    any
	operator string
}

// Key returns the storage field key.
func (f Filter) Key() string { return f.key }

// Value returns the filter value.
func (f Filter) Value() any { return f.value }

// Operator returns the comparison operator (eq, ne, gt, gte, lt, lte, in).
func (f Filter) Operator() string { return f.operator }

// FilterBuilder builds filters for a specific message field.
// Use MessageFilter() to create one, then chain a comparison method:
//
//	filter, err := store.MessageFilter("CreatedAt").GreaterThan(cutoff)
type FilterBuilder struct {
	key string
	err error
}

// validOperators is the set of supported filter operators.
var validOperators = map[string]bool{
	"eq":  true,
	"ne":  true,
	"gt":  true,
	"gte": true,
	"lt":  true,
	"lte": true,
	"in":  true,
}

// NewFilter creates a filter with the given key, operator, and value.
// The key must be a valid message field (validated via MessageFieldKey).
// Returns ErrFilterInvalid if the key or operator is invalid.
func NewFilter(key, operator string, value any) (Filter, error) {
	storageKey, ok := MessageFieldKey(key)
	if !ok {
		return Filter{}, fmt.Errorf("%w: unsupported field: %s", ErrFilterInvalid, key)
	}
	if !validOperators[operator] {
		return Filter{}, fmt.Errorf("%w: unsupported operator: %s", ErrFilterInvalid, operator)
	}
	return Filter{key: storageKey, value: value, operator: operator}, nil
}

// FilterError represents an error in filter building.
type FilterError struct {
	Key string
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Key, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

func (b *FilterBuilder) build(op string, v any) (Filter, error) {
	if b.err != nil {
		return Filter{}, &FilterError{Key: b.key, Err: b.err}
	}
	return Filter{key: b.key, value: v, operator: op}, nil
}

func (b *FilterBuilder) Equal(v any) (Filter, error)            { return b.build("eq", v) }
func (b *FilterBuilder) NotEqual(v any) (Filter, error)         { return b.build("ne", v) }
func (b *FilterBuilder) GreaterThan(v any) (Filter, error)      { return b.build("gt", v) }
func (b *FilterBuilder) GreaterThanEqual(v any) (Filter, error) { return b.build("gte", v) }
func (b *FilterBuilder) LessThan(v any) (Filter, error)         { return b.build("lt", v) }
func (b *FilterBuilder) LessThanEqual(v any) (Filter, error)    { return b.build("lte", v) }
func (b *FilterBuilder) In(v ...any) (Filter, error)            { return b.build("in", v) }

// MessageFilter returns a filter builder for message fields.
func MessageFilter(field string) *FilterBuilder {
	key, ok := MessageFieldKey(field)
	if !ok {
		return &FilterBuilder{key: field, err: fmt.Errorf("unsupported field: %s", field)}
	}
	return &FilterBuilder{key: key}
}

// MessageFieldKey maps field names to storage keys.
func MessageFieldKey(field string) (string, bool) {
	switch field {
	case "ID", "id":
		return "id", true
	case "SenderID", "sender_id":
		return "sender_id", true
	case "RecipientID", "recipient_id":
		return "recipient_id", true
	case "Type", "type":
		return "type", true
	case "Priority", "priority":
		return "priority", true
	case "IsRead", "is_read":
		return "is_read", true
	case "IsArchived", "is_archived":
		return "is_archived", true
	case "RelatedSwapRequestID", "related_swap_request":
		return "related_swap_request", true
	case "CreatedAt", "created_at":
		return "created_at", true
	case "UpdatedAt", "updated_at":
		return "updated_at", true
	default:
		return "", false
	}
}

// MessageOrderingKey returns the storage key for sorting.
func MessageOrderingKey(field string) (string, bool) {
	return MessageFieldKey(field)
}

// Convenience filter functions

// RecipientIs returns a filter for messages addressed to a specific user.
func RecipientIs(recipientID string) Filter {
	f, _ := MessageFilter("RecipientID").Equal(recipientID)
	return f
}

// SenderIs returns a filter for messages from a specific sender.
func SenderIs(senderID string) Filter {
	f, _ := MessageFilter("SenderID").Equal(senderID)
	return f
}

// TypeIs returns a filter for messages of a specific type.
func TypeIs(messageType string) Filter {
	f, _ := MessageFilter("Type").Equal(messageType)
	return f
}

// PriorityIs returns a filter for messages with a specific priority.
func PriorityIs(priority string) Filter {
	f, _ := MessageFilter("Priority").Equal(priority)
	return f
}

// IsUnread returns a filter for unread messages.
func IsUnread() Filter {
	f, _ := MessageFilter("IsRead").Equal(false)
	return f
}

// IsReadFilter returns a filter for read/unread messages.
func IsReadFilter(isRead bool) Filter {
	f, _ := MessageFilter("IsRead").Equal(isRead)
	return f
}

// IsArchivedFilter returns a filter for archived/unarchived messages.
func IsArchivedFilter(isArchived bool) Filter {
	f, _ := MessageFilter("IsArchived").Equal(isArchived)
	return f
}

// RelatedSwapIs returns a filter for messages referencing a swap request.
func RelatedSwapIs(swapRequestID string) Filter {
	f, _ := MessageFilter("RelatedSwapRequestID").Equal(swapRequestID)
	return f
}

// CreatedBefore returns a filter for messages created before t.
func CreatedBefore(t time.Time) Filter {
	f, _ := MessageFilter("CreatedAt").LessThan(t)
	return f
}

// CreatedAfter returns a filter for messages created after t.
func CreatedAfter(t time.Time) Filter {
	f, _ := MessageFilter("CreatedAt").GreaterThan(t)
	return f
}
