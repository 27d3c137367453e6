package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caffeineduck/tsbridge/command"
)

// Handler is application logic for decoded commands. It must call Respond
// exactly once on the given Responder.
type Handler func(ctx context.Context, r *Responder, cmd command.Command) error

// Dispatcher decodes client commands and runs them through a Handler.
type Dispatcher struct {
	registry *command.Registry
	handler  Handler
	cfg      config
}

// New creates a Dispatcher for the commands in registry.
func New(registry *command.Registry, handler Handler, opts ...Option) *Dispatcher {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		registry: registry,
		handler:  handler,
		cfg:      cfg,
	}
}

// Registry returns the command registry used for decoding.
func (d *Dispatcher) Registry() *command.Registry {
	return d.registry
}

// Dispatch decodes payload and handles the resulting command.
func (d *Dispatcher) Dispatch(ctx context.Context, payload string) ([]byte, error) {
	cmd, err := d.registry.Decode([]byte(payload))
	if err != nil {
		return nil, &UnparseableCommandError{Raw: payload, Err: err}
	}
	return d.Handle(ctx, cmd)
}

// Handle runs the handler for an already decoded command and returns the
// committed response body.
func (d *Dispatcher) Handle(ctx context.Context, cmd command.Command) ([]byte, error) {
	tag, ok := d.registry.TagOf(cmd)
	if !ok {
		tag = fmt.Sprintf("%T", cmd)
	}

	r := &Responder{}
	err := d.invoke(ctx, r, cmd)
	body, responded := r.close()
	if err != nil {
		return nil, &HandlerError{Tag: tag, Err: err}
	}
	if !responded {
		return nil, fmt.Errorf("%s: %w", tag, ErrNoResponse)
	}

	d.cfg.logger.Debug("command handled", slog.String("tag", tag), slog.Int("bytes", len(body)))
	return body, nil
}

func (d *Dispatcher) invoke(ctx context.Context, r *Responder, cmd command.Command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return d.handler(ctx, r, cmd)
}
