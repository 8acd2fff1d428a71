package messaging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skillswap/messaging/store"
)

// Sentinel errors returned by Service operations. Use errors.Is to test
// for them: wrapped store errors are translated at the service boundary,
// so callers never need to import the store package for error handling.
var (
	// ErrInvalidMessage indicates a draft failed validation. The concrete
	// error is always a *ValidationError enumerating every failing field.
	ErrInvalidMessage = errors.New("messaging: invalid message")

	// ErrMessageNotFound indicates the requested message does not exist.
	ErrMessageNotFound = errors.New("messaging: message not found")

	// ErrInvalidUserID indicates a user identifier is empty or malformed.
	ErrInvalidUserID = errors.New("messaging: invalid user id")

	// ErrInvalidMessageID indicates a message identifier is empty or malformed.
	ErrInvalidMessageID = errors.New("messaging: invalid message id")

	// ErrStoreUnavailable indicates the backing store could not be reached.
	// Operations do not retry internally; callers decide the retry policy.
	ErrStoreUnavailable = errors.New("messaging: store unavailable")

	// ErrStoreRequired indicates NewService was called without a store.
	ErrStoreRequired = errors.New("messaging: store is required")

	// ErrNotConnected indicates Connect has not completed successfully.
	ErrNotConnected = errors.New("messaging: service not connected")

	// ErrAlreadyConnected indicates Connect was called twice.
	ErrAlreadyConnected = errors.New("messaging: service already connected")
)

// FieldError describes a single failing field in a rejected draft.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError reports every field that failed validation, not just
// the first one. It unwraps to ErrInvalidMessage.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidMessage.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidMessage.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidMessage
}

// Field returns the message for the named field, or "" if the field passed.
func (e *ValidationError) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// translateStoreError maps store sentinel errors onto the service's own
// error vocabulary, preserving the original in the chain.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrMessageNotFound, err)
	case errors.Is(err, store.ErrInvalidID):
		return fmt.Errorf("%w: %w", ErrInvalidMessageID, err)
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrNotConnected):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("messaging: %w", err)
	}
}
