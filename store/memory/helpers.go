package memory

import (
	"strings"
	"time"

	"github.com/skillswap/messaging/store"
)

func matchesFilters(m *store.Message, filters []store.Filter) bool {
	for _, f := range filters {
		if !matchesFilter(m, f) {
			return false
		}
	}
	return true
}

func matchesFilter(m *store.Message, f store.Filter) bool {
	op := f.Operator()
	value := f.Value()

	var fieldValue any
	switch f.Key() {
	case "id":
		fieldValue = m.ID
	case "sender_id":
		fieldValue = m.SenderID
	case "recipient_id":
		fieldValue = m.RecipientID
	case "type":
		fieldValue = m.Type
	case "priority":
		fieldValue = m.Priority
	case "is_read":
		fieldValue = m.IsRead
	case "is_archived":
		fieldValue = m.IsArchived
	case "related_swap_request":
		fieldValue = m.RelatedSwapRequestID
	case "created_at":
		fieldValue = m.CreatedAt
	case "updated_at":
		fieldValue = m.UpdatedAt
	default:
		return true // Unknown field, skip filter
	}

	switch op {
	case "eq", "=", "":
		return equalValues(fieldValue, value)
	case "ne", "!=":
		return !equalValues(fieldValue, value)
	case "lt", "<":
		return compareValues(fieldValue, value) < 0
	case "lte", "<=":
		return compareValues(fieldValue, value) <= 0
	case "gt", ">":
		return compareValues(fieldValue, value) > 0
	case "gte", ">=":
		return compareValues(fieldValue, value) >= 0
	case "in":
		return valueInSet(fieldValue, value)
	default:
		return true
	}
}

func equalValues(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return a == b
}

// valueInSet checks if a scalar value is in a set (slice) of values.
func valueInSet(fieldValue any, set any) bool {
	switch s := set.(type) {
	case []string:
		fv, ok := fieldValue.(string)
		if !ok {
			return false
		}
		for _, v := range s {
			if v == fv {
				return true
			}
		}
	case []any:
		for _, v := range s {
			if v == fieldValue {
				return true
			}
		}
	}
	return false
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			if av < bv {
				return -1
			} else if av > bv {
				return 1
			}
			return 0
		}
	case int64:
		if bv, ok := b.(int64); ok {
			if av < bv {
				return -1
			} else if av > bv {
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			if av.Before(bv) {
				return -1
			} else if av.After(bv) {
				return 1
			}
			return 0
		}
	}
	return 0
}

// sortMessages orders msgs by the sort field with ID ascending as tie-break,
// so pagination windows are stable for equal timestamps.
func sortMessages(msgs []*store.Message, sortBy string, order store.SortOrder) {
	if sortBy == "" {
		sortBy = "created_at"
	}
	if order == 0 {
		order = store.SortDesc
	}

	// Simple bubble sort for testing
	for i := 0; i < len(msgs)-1; i++ {
		for j := i + 1; j < len(msgs); j++ {
			if shouldSwap(msgs[i], msgs[j], sortBy, order) {
				msgs[i], msgs[j] = msgs[j], msgs[i]
			}
		}
	}
}

func shouldSwap(a, b *store.Message, sortBy string, order store.SortOrder) bool {
	var cmp int
	switch sortBy {
	case "updated_at":
		cmp = compareValues(a.UpdatedAt, b.UpdatedAt)
	default:
		cmp = compareValues(a.CreatedAt, b.CreatedAt)
	}
	if cmp == 0 {
		// Tie-break on ID ascending regardless of sort direction.
		return a.ID > b.ID
	}
	if order == store.SortAsc {
		return cmp > 0
	}
	return cmp < 0
}
