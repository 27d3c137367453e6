package dispatch

import (
	"fmt"
	"sync"

	"github.com/caffeineduck/tsbridge/command"
)

type responderState int

const (
	responderOpen responderState = iota
	responderDone
	responderClosed
)

// Responder is the single-use response slot handed to a Handler.
type Responder struct {
	mu    sync.Mutex
	state responderState
	body  []byte
}

// Respond encodes v as the response body. The marker ties v to the result
// type the command declares.
func Respond[T any](r *Responder, ret command.Returns[T], v T) error {
	body, err := command.EncodeResult(ret, v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return r.commit(body)
}

func (r *Responder) commit(body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case responderDone:
		return ErrAlreadyResponded
	case responderClosed:
		return ErrResponderClosed
	}
	r.body = body
	r.state = responderDone
	return nil
}

// Responded reports whether a response has been committed.
func (r *Responder) Responded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == responderDone || (r.state == responderClosed && r.body != nil)
}

// close seals the responder and returns the committed body, if any.
func (r *Responder) close() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ok := r.state == responderDone
	r.state = responderClosed
	return r.body, ok
}
