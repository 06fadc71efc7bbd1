package trigger

import (
	"errors"
	"fmt"

	"github.com/0xPuncker/cron-panel/internal/index"
)

var (
	ErrUnsupportedAction = errors.New("action is not supported")
	ErrNoHandler         = errors.New("no handler registered for hook")
	ErrTimeout           = errors.New("hook did not finish before the trigger timeout")
)

// ValidationError rejects a request before anything runs.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Notice is the short code carried back to the panel on redirect.
func (e *ValidationError) Notice() string {
	if errors.Is(e.Err, ErrUnsupportedAction) {
		return "unsupported_action"
	}
	return "invalid_" + e.Field
}

// LookupError means the request passed validation but names no occurrence.
type LookupError struct {
	Key index.Key
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no occurrence of %s at %d with hash %s", e.Key.Hook, e.Key.At, e.Key.Hash)
}

// HandlerError wraps whatever the hook handler returned or panicked with.
type HandlerError struct {
	Hook  string
	Err   error
	Panic bool
}

func (e *HandlerError) Error() string {
	if e.Panic {
		return fmt.Sprintf("hook %s panicked: %v", e.Hook, e.Err)
	}
	return fmt.Sprintf("hook %s failed: %v", e.Hook, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
