package messaging

import (
	"context"
	"fmt"
	"log/slog"
)

// CreateHook observes and augments message creation. BeforeCreate runs
// after validation and may mutate the draft; the mutated draft is
// validated again before it is persisted, and returning an error aborts
// the create. AfterCreate runs once the message is persisted; its
// errors are logged but cannot undo the write.
type CreateHook interface {
	// Name identifies the hook in logs and errors.
	Name() string
	// BeforeCreate may mutate the draft before it is persisted.
	BeforeCreate(ctx context.Context, draft *Draft) error
	// AfterCreate observes the persisted message.
	AfterCreate(ctx context.Context, msg *Message) error
}

// HookError wraps a failure from a named hook.
type HookError struct {
	Hook string
	Op   string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("messaging: hook %s: %s: %v", e.Hook, e.Op, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// runBeforeCreate runs hooks in registration order, stopping at the
// first failure.
func runBeforeCreate(ctx context.Context, hooks []CreateHook, draft *Draft) error {
	for _, h := range hooks {
		if err := h.BeforeCreate(ctx, draft); err != nil {
			return &HookError{Hook: h.Name(), Op: "BeforeCreate", Err: err}
		}
	}
	return nil
}

// runAfterCreate runs all hooks even if some fail. The message is
// already persisted at this point.
func runAfterCreate(ctx context.Context, hooks []CreateHook, logger *slog.Logger, msg *Message) {
	for _, h := range hooks {
		if err := h.AfterCreate(ctx, msg); err != nil {
			logger.Warn("create hook failed after persist",
				"hook", h.Name(), "message_id", msg.ID, "error", err)
		}
	}
}
