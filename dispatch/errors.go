package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrMissingPayload     = errors.New("missing payload")
	ErrUnparseableCommand = errors.New("unparseable command")
	ErrNoResponse         = errors.New("handler did not respond")
	ErrAlreadyResponded   = errors.New("response already sent")
	ErrResponderClosed    = errors.New("responder closed")
	ErrUnhandledCommand   = errors.New("no route for command")

	errInvalidRequest = errors.New("invalid request")
)

// maxRawInError bounds how much of a rejected payload is echoed in messages.
const maxRawInError = 256

// UnparseableCommandError keeps the raw payload that failed to decode.
type UnparseableCommandError struct {
	Raw string
	Err error
}

func (e *UnparseableCommandError) Error() string {
	raw := e.Raw
	if len(raw) > maxRawInError {
		raw = raw[:maxRawInError] + "..."
	}
	return fmt.Sprintf("unparseable command %q: %v", raw, e.Err)
}

func (e *UnparseableCommandError) Unwrap() error { return e.Err }

func (e *UnparseableCommandError) Is(target error) bool {
	return target == ErrUnparseableCommand
}

// HandlerError wraps a failure returned by (or recovered from) a Handler.
type HandlerError struct {
	Tag string
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handle %s: %v", e.Tag, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
